package server

import (
	"errors"
	"net"
	"sync"
	"time"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

var errSendQueueFull = errors.New("send queue full")

// conn wraps a client socket. The receive loop owns reads; a single
// writer goroutine drains the outbound queue, so broadcasts from the
// round loop keep their issuance order without ever blocking on a
// stalled peer. A client that stops reading overflows the queue or
// trips the write deadline and is disconnected.
type conn struct {
	c    net.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(c net.Conn) *conn {
	cn := &conn{
		c:    c,
		out:  make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	go cn.writeLoop()
	return cn
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case line := <-c.out:
			_ = c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.c.Write(line); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Send enqueues one line without blocking. A full queue means the
// peer stopped reading; the connection is closed and the caller sees
// a transport error, which upstream treats as a disconnect.
func (c *conn) Send(line []byte) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- line:
		return nil
	default:
		_ = c.Close()
		return errSendQueueFull
	}
}

func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.c.Close()
	})
	return err
}
