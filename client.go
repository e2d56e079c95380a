package ircbot

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	mathRand "math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gissleh/ircbot/ircutil"
	"github.com/gissleh/ircbot/isupport"
	"github.com/gissleh/ircbot/state"
	"github.com/inconshreveable/log15"
)

// ErrNoConnection is returned if you try to do something requiring a connection,
// but there is none.
var ErrNoConnection = errors.New("irc: no connection")

// ErrAlreadyConnected is returned by Connect and Start if the client is still
// connected.
var ErrAlreadyConnected = errors.New("irc: already connected")

// ErrDisconnected is returned by Connect and Start if the connection was lost
// before registration completed.
var ErrDisconnected = errors.New("irc: disconnected before registration")

// ErrDestroyed is returned when using a destroyed client.
var ErrDestroyed = errors.New("irc: client destroyed")

// ErrNoTarget is returned by Event.Respond if there's nowhere to respond to.
var ErrNoTarget = errors.New("irc: event has no target")

// ErrWaiterClosed is returned by Waiter.Next if the waiter is closed.
var ErrWaiterClosed = errors.New("irc: waiter closed")

// A Client is an IRC client. You need to use New to construct it
type Client struct {
	id         string
	config     Config
	logger     log15.Logger
	metrics    *metrics
	dispatcher *dispatcher
	isupport   *isupport.ISupport

	ctx    context.Context
	cancel context.CancelFunc

	mutex  sync.RWMutex
	conn   *connection
	values map[string]interface{}
}

// New creates a new client. The context can be context.Background if you want manually to
// tear down clients upon quitting.
func New(ctx context.Context, config Config) (*Client, error) {
	config = config.WithDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	id := generateClientID()
	logger := config.Logger.New("client", id)

	client := &Client{
		id:       id,
		config:   config,
		logger:   logger,
		metrics:  newMetrics(config.Registerer, id, logger),
		isupport: isupport.New(),
		values:   make(map[string]interface{}),
	}
	client.dispatcher = newDispatcher(client, config.Dispatch, logger, client.metrics)
	client.ctx, client.cancel = context.WithCancel(ctx)

	go func() {
		<-client.ctx.Done()
		client.teardown()
	}()

	return client, nil
}

// Context gets the client's context. It's cancelled if the parent context used
// in New is, or Destroy is called.
func (client *Client) Context() context.Context {
	return client.ctx
}

// ID gets the unique identifier for the client, which could be used in data structures
func (client *Client) ID() string {
	return client.id
}

// Config gets the client's config with the defaults filled in.
func (client *Client) Config() Config {
	return client.config
}

// Nick gets the nick of the client
func (client *Client) Nick() string {
	conn := client.connection()
	if conn == nil {
		return ""
	}

	nick, _, _ := conn.self()
	return nick
}

// User gets the user/ident of the client
func (client *Client) User() string {
	conn := client.connection()
	if conn == nil {
		return ""
	}

	_, user, _ := conn.self()
	return user
}

// Host gets the hostname of the client
func (client *Client) Host() string {
	conn := client.connection()
	if conn == nil {
		return ""
	}

	_, _, host := conn.self()
	return host
}

// ISupport gets the client's ISupport. This is mutable, and changes to it
// *will* affect the client.
func (client *Client) ISupport() *isupport.ISupport {
	return client.isupport
}

// ConnState gets the state of the current connection.
func (client *Client) ConnState() ConnState {
	conn := client.connection()
	if conn == nil {
		return Disconnected
	}

	return conn.State()
}

// Connected returns true if the client has a connection that isn't closed.
func (client *Client) Connected() bool {
	return client.ConnState() != Disconnected
}

// CapEnabled returns true if the capability was negotiated on the current
// connection.
func (client *Client) CapEnabled(capability string) bool {
	conn := client.connection()
	if conn == nil || conn.negotiator == nil {
		return false
	}

	return conn.negotiator.Enabled(capability)
}

// EnabledCaps lists the capabilities negotiated on the current connection.
func (client *Client) EnabledCaps() []string {
	conn := client.connection()
	if conn == nil || conn.negotiator == nil {
		return nil
	}

	return conn.negotiator.EnabledCaps()
}

// Snapshot gets a frozen copy of every user and channel the client knows of.
func (client *Client) Snapshot() (*state.Directory, error) {
	conn := client.connection()
	if conn == nil {
		return nil, ErrNoConnection
	}

	return conn.dir.Snapshot()
}

// Channel gets a snapshot of a channel the client is in.
func (client *Client) Channel(name string) (*state.Channel, error) {
	conn := client.connection()
	if conn == nil {
		return nil, ErrNoConnection
	}

	channel, err := conn.dir.Channel(name)
	if err != nil {
		return nil, err
	}

	return conn.dir.SnapshotChannel(channel)
}

// Connect connects to the server at addr, or Config.Server if addr is empty,
// and waits until the client is registered. Capability negotiation errors,
// like a failed SASL login, are returned from here.
func (client *Client) Connect(ctx context.Context, addr string) error {
	if addr == "" {
		addr = client.config.Server
	}

	transport, err := Dial(ctx, addr, client.config.TLS, client.config.tlsConfig())
	if err != nil {
		return err
	}

	return client.Start(ctx, transport)
}

// Start runs the client over a transport, and waits like Connect does. The
// transport is closed if it fails.
func (client *Client) Start(ctx context.Context, transport Transport) error {
	if client.Destroyed() {
		return ErrDestroyed
	}

	client.mutex.Lock()
	if client.conn != nil && client.conn.State() != Disconnected {
		client.mutex.Unlock()
		return ErrAlreadyConnected
	}

	client.isupport.Reset()

	conn, err := newConnection(client, transport)
	if err != nil {
		client.mutex.Unlock()
		_ = transport.Close()
		return err
	}
	client.conn = conn
	client.mutex.Unlock()

	waiter := client.NewWaiter("packet.001", "error.negotiation", "client.disconnect")
	defer waiter.Close()

	client.dispatcher.dispatch(client.newEvent("client", "connect"))

	if err := conn.start(); err != nil {
		conn.close()
		return err
	}

	event, err := waiter.Next(ctx)
	if err != nil {
		conn.close()
		return err
	}

	switch event.Name() {
	case "error.negotiation":
		return event.Err()
	case "client.disconnect":
		if event.Err() != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, event.Err())
		}

		return ErrDisconnected
	}

	return nil
}

// Disconnect closes the connection. It will return ErrNoConnection if there
// is none.
func (client *Client) Disconnect() error {
	conn := client.connection()
	if conn == nil || conn.State() == Disconnected {
		return ErrNoConnection
	}

	conn.close()

	return nil
}

// Quit sends a QUIT with the reason, and lets the server close the connection.
func (client *Client) Quit(reason string) error {
	return client.SendNow("QUIT :" + reason)
}

// Send queues a line. Queued lines are throttled according to SendRate and
// SendBurst.
func (client *Client) Send(line string) error {
	conn := client.connection()
	if conn == nil {
		return ErrNoConnection
	}

	return conn.queue(line)
}

// Sendf is Send with a fmt.Sprintf
func (client *Client) Sendf(format string, a ...interface{}) error {
	return client.Send(fmt.Sprintf(format, a...))
}

// SendNow sends a line right away, skipping the queue.
func (client *Client) SendNow(line string) error {
	conn := client.connection()
	if conn == nil {
		return ErrNoConnection
	}

	return conn.SendLineNow(line)
}

// Privmsg sends a message, cutting it up if it's too long.
func (client *Client) Privmsg(target, text string) error {
	cuts, err := client.Cut(target, text, false)
	if err != nil {
		return err
	}

	for _, cut := range cuts {
		if err := client.Sendf("PRIVMSG %s :%s", target, cut); err != nil {
			return err
		}
	}

	return nil
}

// Notice sends a notice, cutting it up if it's too long.
func (client *Client) Notice(target, text string) error {
	cuts, err := client.Cut(target, text, false)
	if err != nil {
		return err
	}

	for _, cut := range cuts {
		if err := client.Sendf("NOTICE %s :%s", target, cut); err != nil {
			return err
		}
	}

	return nil
}

// SendCTCP sends a queued ctcp/ctcp reply message to the target.
func (client *Client) SendCTCP(verb, targetName string, reply bool, text string) error {
	ircVerb := "PRIVMSG"
	if reply {
		ircVerb = "NOTICE"
	}

	if text == "" {
		return client.Sendf("%s %s :\x01%s\x01", ircVerb, targetName, strings.ToUpper(verb))
	}

	return client.Sendf("%s %s :\x01%s %s\x01", ircVerb, targetName, strings.ToUpper(verb), text)
}

// Join joins one or more channels without a key.
func (client *Client) Join(channels ...string) error {
	return client.Sendf("JOIN %s", strings.Join(channels, ","))
}

// Part leaves a channel.
func (client *Client) Part(channel, reason string) error {
	if reason == "" {
		return client.Sendf("PART %s", channel)
	}

	return client.Sendf("PART %s :%s", channel, reason)
}

// PrivmsgOverhead returns the overhead on a privmsg to the target. If `action` is true,
// it will also count the extra overhead of a CTCP ACTION.
func (client *Client) PrivmsgOverhead(targetName string, action bool) int {
	nick, user, host := "", "", ""
	if conn := client.connection(); conn != nil {
		nick, user, host = conn.self()
	}

	// Return a really safe estimate if user or host is missing.
	if user == "" || host == "" {
		return 200
	}

	return ircutil.MessageOverhead(nick, user, host, targetName, action)
}

// Cut splits a message to the target so that every line fits within the
// server's LINELEN. It fails with ircutil.ErrNoRoom if the target name is too
// long for any text to fit.
func (client *Client) Cut(target, text string, action bool) ([]string, error) {
	return ircutil.CutMessage(text, client.isupport.LineLength(), client.PrivmsgOverhead(target, action))
}

// AddListener adds a listener that receives every event.
func (client *Client) AddListener(listener Listener) ListenerID {
	return client.dispatcher.add(func(event *Event, client *Client, _ func()) error {
		return listener(event, client)
	})
}

// AddTemporaryListener adds a listener that can remove itself. Once done has
// been called and the listener returns, ListenerExists reports false.
func (client *Client) AddTemporaryListener(listener TemporaryListener) ListenerID {
	return client.dispatcher.add(listener)
}

// RemoveListener removes a listener. It may still get an event that is being
// dispatched as it's removed.
func (client *Client) RemoveListener(id ListenerID) bool {
	return client.dispatcher.remove(id)
}

// ListenerExists returns true if the listener hasn't been removed.
func (client *Client) ListenerExists(id ListenerID) bool {
	return client.dispatcher.exists(id)
}

// Emit dispatches an event of your own. In DispatchSync mode the listeners
// run before it returns.
func (client *Client) Emit(event *Event) {
	if event.client == nil {
		event.client = client
	}

	client.dispatcher.dispatch(event)
}

// NewWaiter creates a waiter for events with the names or kinds, e.g.
// "packet.join" or "ctcp". With no names, it gets every event. It must be
// closed when no longer needed.
func (client *Client) NewWaiter(names ...string) *Waiter {
	waiter := &Waiter{
		dispatcher: client.dispatcher,
		names:      make(map[string]bool, len(names)),
		mailbox:    newMailbox(),
	}
	for _, name := range names {
		waiter.names[name] = true
	}

	client.dispatcher.addWaiter(waiter)

	return waiter
}

// WaitFor waits for the next event with one of the names or kinds. It returns
// nil and the context's error if the context ends first. In DispatchSync mode,
// it must not be called from a listener.
func (client *Client) WaitFor(ctx context.Context, names ...string) (*Event, error) {
	waiter := client.NewWaiter(names...)
	defer waiter.Close()

	return waiter.Next(ctx)
}

// Value gets a client value.
func (client *Client) Value(key string) (v interface{}, ok bool) {
	client.mutex.RLock()
	v, ok = client.values[key]
	client.mutex.RUnlock()

	return
}

// SetValue sets a client value.
func (client *Client) SetValue(key string, value interface{}) {
	client.mutex.Lock()
	client.values[key] = value
	client.mutex.Unlock()
}

// Destroy destroys the client, which will lead to a disconnect. Cancelling the
// parent context will do the same.
func (client *Client) Destroy() {
	client.cancel()
	client.teardown()
}

// Destroyed returns true if the client has been destroyed, either by
// Destroy or the parent context.
func (client *Client) Destroyed() bool {
	select {
	case <-client.ctx.Done():
		return true
	default:
		return false
	}
}

func (client *Client) teardown() {
	if conn := client.connection(); conn != nil {
		conn.close()
	}

	client.dispatcher.close()
}

func (client *Client) connection() *connection {
	client.mutex.RLock()
	defer client.mutex.RUnlock()

	return client.conn
}

func (client *Client) newEvent(kind, verb string) *Event {
	event := NewEvent(kind, verb, "")
	event.client = client

	return event
}

func generateClientID() string {
	bytes := make([]byte, 12)
	_, err := rand.Read(bytes)

	// Ugly fallback if crypto rand doesn't work.
	if err != nil {
		rng := mathRand.NewSource(time.Now().UnixNano())
		result := strconv.FormatInt(rng.Int63(), 16)
		for len(result) < 24 {
			result += strconv.FormatInt(rng.Int63(), 16)
		}

		return result[:24]
	}

	binary.BigEndian.PutUint32(bytes[4:], uint32(time.Now().Unix()))

	return hex.EncodeToString(bytes)
}
