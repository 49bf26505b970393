package server

import (
	"bufio"
	"bytes"
	"context"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textordeath/server/internal/bot"
	"github.com/textordeath/server/internal/codec"
	"github.com/textordeath/server/internal/game"
	"github.com/textordeath/server/internal/player"
	"github.com/textordeath/server/internal/registry"
	"github.com/textordeath/server/internal/words"
)

func newTestServer(capacity int) (*Server, *registry.Registry) {
	reg := registry.New(capacity)
	driver := bot.New(rand.New(rand.NewSource(1)), zap.NewNop())
	coord := game.New(game.Config{
		TypingTimeLimit: time.Second,
		RoundPause:      10 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	}, reg, words.NewSequence("cat", "dog", "run", "jump"), driver, zap.NewNop())
	return New("127.0.0.1:0", "127.0.0.1:0", reg, coord, zap.NewNop()), reg
}

// testClient talks to a handle goroutine over an in-memory pipe and
// records everything the server sends back.
type testClient struct {
	conn   net.Conn
	mu     sync.Mutex
	msgs   []codec.Message
	closed chan struct{}
}

func dial(t *testing.T, ctx context.Context, s *Server) *testClient {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	go s.handle(ctx, newConn(serverSide))

	c := &testClient{conn: clientSide, closed: make(chan struct{})}
	go func() {
		defer close(c.closed)
		sc := bufio.NewScanner(clientSide)
		sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
		for sc.Scan() {
			msg, err := codec.Decode(bytes.TrimSpace(sc.Bytes()))
			if err != nil {
				return
			}
			c.mu.Lock()
			c.msgs = append(c.msgs, msg)
			c.mu.Unlock()
		}
	}()
	t.Cleanup(func() { _ = clientSide.Close() })
	return c
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	if err := c.conn.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func (c *testClient) kindCount(kind codec.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.Type == kind {
			n++
		}
	}
	return n
}

// waitMsg blocks until the n-th message of the given kind arrives.
func (c *testClient) waitMsg(t *testing.T, kind codec.Kind, n int, within time.Duration) codec.Message {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		seen := 0
		for _, m := range c.msgs {
			if m.Type == kind {
				seen++
				if seen == n {
					c.mu.Unlock()
					return m
				}
			}
		}
		c.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("no %s message (#%d) within %v", kind, n, within)
	return codec.Message{}
}

func (c *testClient) waitClosed(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(within):
		t.Fatalf("connection still open after %v", within)
	}
}

func (c *testClient) join(t *testing.T, name string) codec.JoinReply {
	t.Helper()
	n := c.kindCount(codec.KindPlayerJoin)
	c.send(t, `{"type":"player_join","data":{"name":"`+name+`"}}`)
	msg := c.waitMsg(t, codec.KindPlayerJoin, n+1, time.Second)
	var reply codec.JoinReply
	require.NoError(t, msg.DecodeData(&reply))
	return reply
}

func TestJoin_Success(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)
	c := dial(t, ctx, s)

	reply := c.join(t, "Alice")
	require.True(t, reply.Success)
	require.NotEmpty(t, reply.PlayerID)

	// The joiner also receives the join broadcast and the game_state
	// snapshot.
	bmsg := c.waitMsg(t, codec.KindPlayerJoin, 2, time.Second)
	var bc codec.JoinBroadcast
	require.NoError(t, bmsg.DecodeData(&bc))
	require.Equal(t, "Alice", bc.Player.Name)
	require.Equal(t, 1, bc.TotalPlayers)

	smsg := c.waitMsg(t, codec.KindGameState, 1, time.Second)
	var state codec.GameStateData
	require.NoError(t, smsg.DecodeData(&state))
	require.False(t, state.GameActive)
	require.Len(t, state.Players, 1)

	require.Equal(t, 1, reg.Len())
	p, ok := reg.Get(reply.PlayerID)
	require.True(t, ok)
	require.Equal(t, "Alice", p.Name)
}

func TestJoin_ServerFullThenRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(1)
	require.NoError(t, reg.Add(player.NewHuman("filler", "Filler", nil)))

	c := dial(t, ctx, s)

	reply := c.join(t, "Alice")
	require.False(t, reply.Success)
	require.Equal(t, "server full", reply.Reason)
	require.Equal(t, 1, reg.Len())

	// The connection stays open; a retry succeeds once a slot frees.
	_, ok := reg.Remove("filler")
	require.True(t, ok)

	retry := c.join(t, "Alice")
	require.True(t, retry.Success)
	require.Equal(t, 1, reg.Len())
}

func TestPreJoinMessageDropsConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)
	c := dial(t, ctx, s)

	c.send(t, `{"type":"heartbeat","data":{}}`)
	c.waitClosed(t, time.Second)
	require.Equal(t, 0, reg.Len())
}

func TestMalformedJSONDropsConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := newTestServer(4)
	c := dial(t, ctx, s)

	c.send(t, `{"type":"player_join"`)
	c.waitClosed(t, time.Second)
}

func TestUnknownKindDropsConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := newTestServer(4)
	c := dial(t, ctx, s)

	c.send(t, `{"type":"teleport","data":{}}`)
	c.waitClosed(t, time.Second)
}

func TestHeartbeatAfterJoinKeepsConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)
	c := dial(t, ctx, s)

	reply := c.join(t, "Alice")
	require.True(t, reply.Success)

	c.send(t, `{"type":"heartbeat","data":{}}`)

	select {
	case <-c.closed:
		t.Fatalf("heartbeat dropped the connection")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, 1, reg.Len())
}

func TestPlayerResponse_Routed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)
	c := dial(t, ctx, s)

	reply := c.join(t, "Alice")
	require.True(t, reply.Success)

	p, ok := reg.Get(reply.PlayerID)
	require.True(t, ok)
	p.StartTyping("cat")

	c.send(t, `{"type":"player_response","data":{"text":"cat","complete":true}}`)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && p.State() == player.StateTyping {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, player.StateWaiting, p.State())
	require.True(t, p.WordCorrect())
}

func TestJoin_BadPayloadDropsConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)
	c := dial(t, ctx, s)

	c.send(t, `{"type":"player_join","data":{"name":123}}`)
	c.waitClosed(t, time.Second)
	require.Equal(t, 0, reg.Len())
}

func TestConnSend_StalledPeerDoesNotBlock(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	// The peer never reads, modeling a full TCP send buffer.
	cn := newConn(serverSide)
	line := []byte(`{"type":"heartbeat","data":{}}` + "\n")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10*sendQueueSize; i++ {
			_ = cn.Send(line)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a peer that stopped reading")
	}

	// Overflow closed the connection; further sends fail fast.
	require.Error(t, cn.Send(line))
}

func TestStalledClientDoesNotFreezeGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := newTestServer(4)

	// Sloth joins, then never reads another byte.
	serverSide, slothSide := net.Pipe()
	go s.handle(ctx, newConn(serverSide))
	t.Cleanup(func() { _ = slothSide.Close() })
	_ = slothSide.SetWriteDeadline(time.Now().Add(time.Second))
	_, err := slothSide.Write([]byte(`{"type":"player_join","data":{"name":"Sloth"}}` + "\n"))
	require.NoError(t, err)

	// A second join starts the game; the round loop must keep
	// broadcasting even though Sloth's socket is wedged.
	alice := dial(t, ctx, s)
	reply := alice.join(t, "Alice")
	require.True(t, reply.Success)

	alice.waitMsg(t, codec.KindGameStart, 1, 2*time.Second)
	alice.waitMsg(t, codec.KindRoundStart, 1, 2*time.Second)
}

func TestDisconnectRemovesPlayerAndBroadcastsLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, reg := newTestServer(4)

	alice := dial(t, ctx, s)
	aliceReply := alice.join(t, "Alice")
	require.True(t, aliceReply.Success)

	bob := dial(t, ctx, s)
	bobReply := bob.join(t, "Bob")
	require.True(t, bobReply.Success)

	require.NoError(t, bob.conn.Close())

	msg := alice.waitMsg(t, codec.KindPlayerLeave, 1, 2*time.Second)
	var leave codec.LeaveBroadcast
	require.NoError(t, msg.DecodeData(&leave))
	require.Equal(t, bobReply.PlayerID, leave.PlayerID)
	require.Equal(t, "Bob", leave.Name)
	require.Equal(t, 1, leave.TotalPlayers)

	require.Equal(t, 1, reg.Len())
}
