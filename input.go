package ircbot

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	mathRand "math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/gissleh/ircbot/capability"
	"github.com/gissleh/ircbot/dcc"
	"github.com/gissleh/ircbot/state"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ConnState is the state of a connection.
type ConnState int

const (
	// Connecting is before capability negotiation and registration.
	Connecting ConnState = iota
	// Negotiating is while capabilities are negotiated, up until the server
	// accepts the registration.
	Negotiating
	// Registered is after the 001 welcome.
	Registered
	// Disconnected is final. Connecting again makes a new connection.
	Disconnected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Negotiating:
		return "negotiating"
	case Registered:
		return "registered"
	default:
		return "disconnected"
	}
}

// Reads that fail with non-fatal errors are retried after a delay that doubles
// with each failure in a row, up to maxReadBackoff.
const (
	minReadBackoff = time.Millisecond
	maxReadBackoff = time.Millisecond * 500
)

const sendQueueSize = 64

type readResult struct {
	line string
	err  error
}

// A connection is one session with the server. It owns the reader goroutine,
// the send queue, the negotiator and the directory.
type connection struct {
	client     *Client
	transport  Transport
	negotiator *capability.Negotiator
	dir        *state.Directory
	logger     log15.Logger
	limiter    *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	sends     chan string

	mutex sync.RWMutex
	state ConnState
	nick  string
	user  string
	host  string
}

func newConnection(client *Client, transport Transport) (*connection, error) {
	locale, err := client.config.locale()
	if err != nil {
		return nil, err
	}

	conn := &connection{
		client:    client,
		transport: transport,
		dir:       state.NewDirectory(client.isupport, locale),
		logger:    client.logger,
		limiter:   rate.NewLimiter(rate.Limit(client.config.SendRate), client.config.SendBurst),
		sends:     make(chan string, sendQueueSize),
		state:     Connecting,
	}
	conn.ctx, conn.cancel = context.WithCancel(client.ctx)

	if !client.config.DisableCAP {
		conn.negotiator, err = capability.New(conn, client.config.capHandlers(), client.logger)
		if err != nil {
			return nil, err
		}
	}

	return conn, nil
}

// start runs the loops and begins negotiation or registration.
func (conn *connection) start() error {
	go conn.readLoop()
	go conn.sendLoop()

	if conn.negotiator == nil {
		return conn.register()
	}

	conn.setState(Negotiating)

	return conn.negotiator.Start()
}

func (conn *connection) register() error {
	config := conn.client.config

	if config.Password != "" {
		if err := conn.SendLineNow("PASS :" + config.Password); err != nil {
			return err
		}
	}

	if err := conn.SendLineNow("NICK " + config.Nick); err != nil {
		return err
	}

	return conn.SendLineNow(fmt.Sprintf("USER %s 8 * :%s", config.User, config.RealName))
}

// State gets the connection state.
func (conn *connection) State() ConnState {
	conn.mutex.RLock()
	defer conn.mutex.RUnlock()

	return conn.state
}

func (conn *connection) setState(s ConnState) {
	conn.mutex.Lock()
	if conn.state != Disconnected {
		conn.state = s
	}
	conn.mutex.Unlock()
}

func (conn *connection) self() (nick, user, host string) {
	conn.mutex.RLock()
	defer conn.mutex.RUnlock()

	return conn.nick, conn.user, conn.host
}

func (conn *connection) isSelf(nick string) bool {
	own, _, _ := conn.self()

	return own != "" && conn.dir.Fold(own) == conn.dir.Fold(nick)
}

// SendLineNow writes a line without going through the queue.
func (conn *connection) SendLineNow(line string) error {
	if conn.State() == Disconnected {
		return ErrNoConnection
	}

	return conn.transport.WriteLine(line)
}

// StartTLS upgrades the transport. It's only called from the reader goroutine
// while it's handling a line, so there is no read in progress.
func (conn *connection) StartTLS(config *tls.Config) error {
	return conn.transport.StartTLS(config)
}

func (conn *connection) queue(line string) error {
	if conn.State() == Disconnected {
		return ErrNoConnection
	}

	select {
	case conn.sends <- line:
		return nil
	case <-conn.ctx.Done():
		return ErrNoConnection
	}
}

func (conn *connection) sendLoop() {
	for {
		select {
		case line := <-conn.sends:
			if err := conn.limiter.Wait(conn.ctx); err != nil {
				return
			}

			if err := conn.SendLineNow(line); err != nil {
				conn.logger.Warn("could not send line", "err", err)
			}
		case <-conn.ctx.Done():
			return
		}
	}
}

// close closes the transport and marks the connection as disconnected. The
// reader goroutine reports the disconnect.
func (conn *connection) close() {
	conn.closeOnce.Do(func() {
		conn.mutex.Lock()
		conn.state = Disconnected
		conn.mutex.Unlock()

		conn.cancel()

		if err := conn.transport.Close(); err != nil {
			conn.logger.Debug("error when closing transport", "err", err)
		}
	})
}

// readLoop reads lines until the connection is gone. There is never more than
// one read in progress, and the next one starts once the last line has been
// handled.
func (conn *connection) readLoop() {
	idleTimeout := conn.client.config.IdleTimeout
	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	results := make(chan readResult, 1)
	reading := false
	failures := 0

	for {
		if !reading {
			reading = true
			go func() {
				line, err := conn.transport.ReadLine()
				results <- readResult{line: line, err: err}
			}()
		}

		select {
		case result := <-results:
			reading = false
			resetTimer(timer, idleTimeout)

			if result.err != nil {
				if isFatalReadError(result.err) {
					conn.finish(result.err)
					return
				}

				failures++
				delay := readBackoff(failures)
				conn.logger.Warn("read failed", "err", result.err, "failures", failures, "retryIn", delay)

				select {
				case <-time.After(delay):
				case <-conn.ctx.Done():
					conn.finish(nil)
					return
				}

				continue
			}

			failures = 0
			conn.handleLine(result.line)
		case <-timer.C:
			conn.logger.Debug("connection idle, sending ping")
			if err := conn.SendLineNow(fmt.Sprintf("PING %d", time.Now().Unix())); err != nil {
				conn.logger.Warn("could not send ping", "err", err)
			} else {
				conn.client.metrics.pingsSent.Inc()
			}

			timer.Reset(idleTimeout)
		case <-conn.ctx.Done():
			conn.finish(nil)
			return
		}
	}
}

// finish closes the connection and dispatches client.disconnect. The error
// is left out if the connection was closed on this end.
func (conn *connection) finish(err error) {
	if conn.ctx.Err() != nil {
		err = nil
	}

	conn.close()

	if err != nil {
		conn.logger.Info("disconnected", "err", err)
	} else {
		conn.logger.Info("disconnected")
	}

	event := conn.client.newEvent("client", "disconnect")
	event.err = err
	conn.client.dispatcher.dispatch(event)
}

func isFatalReadError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}

	return false
}

func readBackoff(failures int) time.Duration {
	delay := minReadBackoff
	for i := 1; i < failures && delay < maxReadBackoff; i++ {
		delay *= 2
	}
	if delay > maxReadBackoff {
		delay = maxReadBackoff
	}

	return delay
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	timer.Reset(d)
}

// handleLine routes a line to the negotiator, or updates the state and
// dispatches it as an event.
func (conn *connection) handleLine(line string) {
	defer func() {
		if r := recover(); r != nil {
			conn.logger.Error("panic while handling line", "line", line, "panic", r)
		}
	}()

	conn.client.metrics.linesRead.Inc()

	if line == "" {
		return
	}

	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		conn.logger.Warn("could not parse line", "line", line, "err", err)
		return
	}

	if conn.negotiator != nil && (strings.EqualFold(msg.Command, "CAP") || !conn.negotiator.Finished()) {
		wasFinished := conn.negotiator.Finished()

		handled, err := conn.negotiator.HandleLine(msg)
		if err != nil {
			conn.logger.Warn("capability negotiation failed", "err", err)
			conn.close()

			event := newErrorEvent("negotiation", err)
			event.client = conn.client
			conn.client.dispatcher.dispatch(event)

			return
		}

		if !wasFinished && conn.negotiator.Finished() {
			if err := conn.register(); err != nil {
				conn.logger.Warn("could not register", "err", err)
			}
		}

		if handled {
			return
		}
	}

	event := packetEvent(msg, line)
	event.client = conn.client

	conn.update(event)

	conn.client.dispatcher.dispatch(event)
}

// update applies the event to the directory, and attaches snapshots of the
// channel and user to it.
func (conn *connection) update(event *Event) {
	dir := conn.dir
	is := conn.client.isupport
	channelName := ""

	switch event.name {
	case "packet.ping":
		{
			param := event.text
			if param == "" && len(event.args) > 0 {
				param = event.args[len(event.args)-1]
			}

			if err := conn.SendLineNow("PONG :" + param); err != nil {
				conn.logger.Warn("could not send pong", "err", err)
			}
		}

	// Registration
	case "packet.001":
		{
			nick := event.Arg(0)

			conn.mutex.Lock()
			conn.nick = nick
			conn.mutex.Unlock()
			conn.setState(Registered)

			if _, err := dir.GetOrCreateUser(nick); err != nil {
				conn.logger.Warn("could not add self", "err", err)
			}

			conn.logger.Info("registered", "nick", nick)

			conn.enqueue("WHO " + nick)
			if channels := conn.client.config.Channels; len(channels) > 0 {
				conn.enqueue("JOIN " + strings.Join(channels, ","))
			}
		}

	case "packet.433":
		{
			if conn.State() == Registered {
				break
			}

			nick := event.Arg(1)
			config := conn.client.config

			// "AltN" -> "AltN+1", ...
			prev := config.Nick
			next := ""
			for _, alt := range config.Alternatives {
				if nick == prev {
					next = alt
					break
				}

				prev = alt
			}

			// "LastAlt" -> "Nick23962"
			if next == "" {
				next = fmt.Sprintf("%s%05d", config.Nick, mathRand.Int31n(99999))
			}

			if err := conn.SendLineNow("NICK " + next); err != nil {
				conn.logger.Warn("could not change nick", "err", err)
			}
		}

	case "packet.005":
		{
			if len(event.args) < 2 {
				break
			}

			before := is.CaseMapping()
			for _, token := range event.args[1:] {
				is.SetToken(token)
			}

			if is.CaseMapping() != before {
				if err := dir.Rekey(); err != nil {
					conn.logger.Warn("could not rekey directory", "err", err)
				}
			}
		}

	case "packet.nick":
		{
			newNick := event.Arg(0)
			if newNick == "" {
				newNick = event.text
			}

			if conn.isSelf(event.nick) {
				conn.mutex.Lock()
				conn.nick = newNick
				conn.mutex.Unlock()
			}

			if err := dir.RenameUser(event.nick, newNick); err != nil {
				conn.logger.Debug("nick change for unknown user", "nick", event.nick)
				break
			}

			if user, err := dir.User(newNick); err == nil {
				event.source = conn.snapshotUser(user)
			}
		}

	// Channel membership
	case "packet.join":
		{
			name := event.Arg(0)
			if name == "" {
				name = event.text
			}

			var channel *state.Channel
			var err error
			if conn.isSelf(event.nick) {
				channel, err = dir.GetOrCreateChannel(name)
				conn.enqueue("MODE " + name)

				conn.mutex.Lock()
				conn.user, conn.host = event.user, event.host
				conn.mutex.Unlock()
			} else {
				channel, err = dir.Channel(name)
			}
			if err != nil {
				conn.logger.Debug("join in unknown channel", "channel", name)
				break
			}

			user, err := dir.GetOrCreateUser(event.nick)
			if err != nil {
				break
			}
			conn.logFailure("SetHostmask", user.SetHostmask(event.user, event.host))

			// extended-join
			if len(event.args) >= 2 {
				conn.logFailure("SetAccount", user.SetAccount(event.args[1]))
				conn.logFailure("SetRealName", user.SetRealName(event.text))
			}

			conn.logFailure("AddMembership", dir.AddMembership(user, channel, state.LevelNormal))
			channelName = name
		}

	case "packet.part":
		{
			channel, err := dir.Channel(event.Arg(0))
			if err != nil {
				break
			}

			conn.snapshotBefore(event, channel, event.nick)
			conn.leave(channel, event.nick)
		}

	case "packet.kick":
		{
			channel, err := dir.Channel(event.Arg(0))
			if err != nil {
				break
			}

			conn.snapshotBefore(event, channel, event.nick)
			conn.leave(channel, event.Arg(1))
		}

	case "packet.quit":
		{
			user, err := dir.User(event.nick)
			if err != nil {
				break
			}

			event.source = conn.snapshotUser(user)
			conn.logFailure("RemoveUser", dir.RemoveUser(event.nick))
		}

	case "packet.353": // NAMES
		{
			channel, err := dir.Channel(event.Arg(2))
			if err != nil {
				break
			}

			for _, token := range strings.Fields(event.text) {
				name, modes, _ := is.ParsePrefixedNick(token)

				// userhost-in-names
				login, host := "", ""
				if strings.ContainsAny(name, "!@") {
					if nuh, err := ircmsg.ParseNUH(name); err == nil {
						name, login, host = nuh.Name, nuh.User, nuh.Host
					}
				}

				user, err := dir.GetOrCreateUser(name)
				if err != nil {
					continue
				}
				conn.logFailure("SetHostmask", user.SetHostmask(login, host))

				conn.logFailure("AddMembership", dir.AddMembership(user, channel, state.LevelNormal))
				for _, mode := range modes {
					if level, ok := state.LevelForMode(mode); ok {
						conn.logFailure("AddMembership", dir.AddMembership(user, channel, level))
					}
				}
			}

			channelName = channel.Name()
		}

	case "packet.366": // End of NAMES
		{
			channelName = event.Arg(1)
		}

	// Modes and topics
	case "packet.mode":
		{
			if len(event.args) == 0 {
				break
			}

			target := event.args[0]
			params := event.args[1:]
			if event.text != "" {
				params = append(params[:len(params):len(params)], event.text)
			}
			if len(params) == 0 {
				break
			}

			if !is.IsChannel(target) {
				if conn.isSelf(target) {
					conn.updateUserMode(target, params[0])
				}

				break
			}

			channel, err := dir.Channel(target)
			if err != nil {
				break
			}

			conn.updateChannelMode(channel, params[0], params[1:])
			channelName = target
		}

	case "packet.324": // RPL_CHANNELMODEIS
		{
			channel, err := dir.Channel(event.Arg(1))
			if err != nil || len(event.args) < 2 {
				break
			}

			mode := append(event.Args()[2:], event.text)
			conn.logFailure("SetMode", channel.SetMode(strings.TrimSpace(strings.Join(mode, " "))))
			channelName = channel.Name()
		}

	case "packet.329": // RPL_CREATIONTIME
		{
			channel, err := dir.Channel(event.Arg(1))
			if err != nil {
				break
			}

			if at, ok := parseUnix(event.Arg(2), event.text); ok {
				conn.logFailure("SetCreatedAt", channel.SetCreatedAt(at))
			}
			channelName = channel.Name()
		}

	case "packet.topic":
		{
			channel, err := dir.Channel(event.Arg(0))
			if err != nil {
				break
			}

			conn.logFailure("SetTopic", channel.SetTopic(event.text, event.nick, event.time))
			channelName = channel.Name()
		}

	case "packet.332": // RPL_TOPIC
		{
			channel, err := dir.Channel(event.Arg(1))
			if err != nil {
				break
			}

			conn.logFailure("SetTopic", channel.SetTopic(event.text, "", time.Time{}))
			channelName = channel.Name()
		}

	case "packet.333": // RPL_TOPICWHOTIME
		{
			channel, err := dir.Channel(event.Arg(1))
			if err != nil {
				break
			}

			at, _ := parseUnix(event.Arg(3), event.text)
			conn.logFailure("SetTopicInfo", channel.SetTopicInfo(event.Arg(2), at))
			channelName = channel.Name()
		}

	// User info
	case "packet.352": // WHO reply
		{
			// Example args: test #channel ~irce 127.0.0.1 localhost.localnetwork Gissleh H :0 ...
			nick := event.Arg(5)
			if conn.isSelf(nick) {
				conn.mutex.Lock()
				conn.user, conn.host = event.Arg(2), event.Arg(3)
				conn.mutex.Unlock()
			}

			user, err := dir.User(nick)
			if err != nil {
				break
			}

			conn.logFailure("SetHostmask", user.SetHostmask(event.Arg(2), event.Arg(3)))
			conn.logFailure("SetServer", user.SetServer(event.Arg(4)))

			flags := event.Arg(6)
			if strings.HasPrefix(flags, "G") && !user.IsAway() {
				conn.logFailure("SetAway", user.SetAway("Away"))
			} else if strings.HasPrefix(flags, "H") {
				conn.logFailure("SetAway", user.SetAway(""))
			}
			conn.logFailure("SetOperator", user.SetOperator(strings.Contains(flags, "*")))

			hopsAndName := strings.SplitN(event.text, " ", 2)
			if hops, err := strconv.Atoi(hopsAndName[0]); err == nil {
				conn.logFailure("SetHops", user.SetHops(hops))
			}
			if len(hopsAndName) == 2 {
				conn.logFailure("SetRealName", user.SetRealName(hopsAndName[1]))
			}

			event.source = conn.snapshotUser(user)
		}

	case "packet.311": // RPL_WHOISUSER
		{
			user, err := dir.User(event.Arg(1))
			if err != nil {
				break
			}

			conn.logFailure("SetHostmask", user.SetHostmask(event.Arg(2), event.Arg(3)))
			conn.logFailure("SetRealName", user.SetRealName(event.text))
			event.source = conn.snapshotUser(user)
		}

	case "packet.301": // RPL_AWAY
		{
			if user, err := dir.User(event.Arg(1)); err == nil {
				conn.logFailure("SetAway", user.SetAway(event.text))
				event.source = conn.snapshotUser(user)
			}
		}

	// away-notify
	case "packet.away":
		{
			if user, err := dir.User(event.nick); err == nil {
				conn.logFailure("SetAway", user.SetAway(event.text))
			}
		}

	// account-notify
	case "packet.account":
		{
			account := event.Arg(0)
			if account == "" {
				account = event.text
			}

			if user, err := dir.User(event.nick); err == nil {
				conn.logFailure("SetAccount", user.SetAccount(account))
			}
		}

	case "packet.chghost":
		{
			login, host := event.Arg(0), event.Arg(1)
			if host == "" {
				host = event.text
			}

			if conn.isSelf(event.nick) {
				conn.mutex.Lock()
				conn.user, conn.host = login, host
				conn.mutex.Unlock()
			}

			if user, err := dir.User(event.nick); err == nil {
				conn.logFailure("SetHostmask", user.SetHostmask(login, host))
			}
		}

	// Messages
	case "packet.privmsg", "packet.notice":
		{
			conn.updateSender(event)
			channelName = conn.channelTarget(event)
		}

	default:
		if event.kind == "ctcp" || event.kind == "ctcp-reply" {
			conn.updateSender(event)
			channelName = conn.channelTarget(event)

			if event.name == "ctcp.dcc" {
				request, err := dcc.ParseRequest(event.text)
				if err != nil {
					conn.logger.Debug("invalid dcc request", "nick", event.nick, "err", err)
					break
				}

				event.dcc = request
				event.setName("dcc", request.Type)
			}
		}
	}

	if event.channel == nil && channelName != "" {
		if channel, err := dir.Channel(channelName); err == nil {
			event.channel = conn.snapshotChannel(channel)
		}
	}

	if event.source == nil && event.nick != "" {
		if event.channel != nil {
			if user, ok := event.channel.Member(event.nick); ok {
				event.source = user
			}
		}
		if event.source == nil {
			if user, err := dir.User(event.nick); err == nil {
				event.source = conn.snapshotUser(user)
			}
		}
	}
}

// logFailure logs a directory change that failed.
func (conn *connection) logFailure(operation string, err error) {
	if err != nil {
		conn.logger.Debug("directory update failed", "operation", operation, "err", err)
	}
}

func (conn *connection) snapshotUser(user *state.User) *state.User {
	snapshot, err := conn.dir.SnapshotUser(user)
	conn.logFailure("SnapshotUser", err)

	return snapshot
}

func (conn *connection) snapshotChannel(channel *state.Channel) *state.Channel {
	snapshot, err := conn.dir.SnapshotChannel(channel)
	conn.logFailure("SnapshotChannel", err)

	return snapshot
}

// enqueue queues a line the client sends on its own.
func (conn *connection) enqueue(line string) {
	if err := conn.queue(line); err != nil {
		conn.logger.Debug("could not queue line", "line", line, "err", err)
	}
}

// snapshotBefore attaches the channel and user as they were before the user
// left.
func (conn *connection) snapshotBefore(event *Event, channel *state.Channel, nick string) {
	event.channel = conn.snapshotChannel(channel)
	if event.channel != nil {
		event.source, _ = event.channel.Member(nick)
	}
}

// leave removes the user from the channel. If it's the client, the whole
// channel is forgotten. Users that no longer share a channel with the client
// are forgotten too.
func (conn *connection) leave(channel *state.Channel, nick string) {
	dir := conn.dir

	if conn.isSelf(nick) {
		conn.logFailure("RemoveChannel", dir.RemoveChannel(channel.Name()))

		for _, user := range dir.Users() {
			conn.forget(user)
		}

		return
	}

	user, err := dir.User(nick)
	if err != nil {
		return
	}

	conn.logFailure("RemoveMembership", dir.RemoveMembership(user, channel))
	conn.forget(user)
}

func (conn *connection) forget(user *state.User) {
	if conn.isSelf(user.Nick()) || len(conn.dir.ChannelsOf(user)) > 0 {
		return
	}

	conn.logFailure("RemoveUser", conn.dir.RemoveUser(user.Nick()))
}

// updateChannelMode applies a MODE change. Prefix modes change the levels,
// list modes are skipped, and the rest go to the channel mode.
func (conn *connection) updateChannelMode(channel *state.Channel, modes string, args []string) {
	is := conn.client.isupport
	dir := conn.dir

	plus := true
	sign := rune(0)
	changes := strings.Builder{}
	changeArgs := make([]string, 0, len(args))

	for _, ch := range modes {
		switch ch {
		case '+':
			plus = true
			continue
		case '-':
			plus = false
			continue
		}

		arg := ""
		if is.ModeTakesArgument(ch, plus) && len(args) > 0 {
			arg, args = args[0], args[1:]
		}

		switch {
		case is.IsPermissionMode(ch):
			level, ok := state.LevelForMode(ch)
			if !ok {
				continue
			}

			user, ok := channel.Member(arg)
			if !ok {
				continue
			}

			if plus {
				conn.logFailure("AddMembership", dir.AddMembership(user, channel, level))
			} else {
				conn.logFailure("RemoveLevel", dir.RemoveLevel(user, channel, level))
			}
		case is.IsListMode(ch):
			continue
		default:
			current := '-'
			if plus {
				current = '+'
			}
			if current != sign {
				sign = current
				changes.WriteRune(sign)
			}

			changes.WriteRune(ch)
			if arg != "" {
				changeArgs = append(changeArgs, arg)
			}
		}
	}

	if changes.Len() == 0 {
		return
	}

	raw := changes.String()
	if len(changeArgs) > 0 {
		raw += " " + strings.Join(changeArgs, " ")
	}

	refresh, err := dir.ApplyMode(channel, raw)
	if err != nil {
		conn.logger.Debug("could not apply mode", "channel", channel.Name(), "err", err)
		return
	}

	if refresh {
		conn.enqueue("MODE " + channel.Name())
	}
}

func (conn *connection) updateUserMode(nick, modes string) {
	user, err := conn.dir.User(nick)
	if err != nil {
		return
	}

	plus := true
	for _, ch := range modes {
		switch ch {
		case '+':
			plus = true
		case '-':
			plus = false
		case 'o', 'O':
			conn.logFailure("SetOperator", user.SetOperator(plus))
		}
	}
}

// updateSender keeps the hostmask of known users up to date from messages.
func (conn *connection) updateSender(event *Event) {
	if event.user == "" && event.host == "" {
		return
	}

	if user, err := conn.dir.User(event.nick); err == nil {
		conn.logFailure("SetHostmask", user.SetHostmask(event.user, event.host))
	}
}

func (conn *connection) channelTarget(event *Event) string {
	target := event.Arg(0)
	if conn.client.isupport.IsChannel(target) {
		return target
	}

	return ""
}

// parseUnix parses a unix timestamp from the first non-empty value.
func parseUnix(values ...string) (time.Time, bool) {
	for _, value := range values {
		if value == "" {
			continue
		}

		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}

		return time.Unix(seconds, 0), true
	}

	return time.Time{}, false
}
