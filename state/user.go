package state

// A User is a user the client knows about, either because it shares a
// channel with it or because it has talked to it.
//
// The getters don't take any lock, since only the input loop changes live
// users. Other goroutines should work on snapshots.
type User struct {
	dir           *Directory
	frozen        bool
	generatedFrom *User

	nick     string
	login    string
	hostname string
	realName string
	server   string
	account  string
	away     string
	hops     int
	operator bool
}

// Nick gets the user's nick.
func (user *User) Nick() string {
	return user.nick
}

// Login gets the user part of the hostmask, also called ident.
func (user *User) Login() string {
	return user.login
}

// Hostname gets the user's host.
func (user *User) Hostname() string {
	return user.hostname
}

// Hostmask gets nick!login@host with whatever parts are known.
func (user *User) Hostmask() string {
	mask := user.nick
	if user.login != "" {
		mask += "!" + user.login
	}
	if user.hostname != "" {
		mask += "@" + user.hostname
	}

	return mask
}

// RealName gets the gecos from WHO or WHOIS replies.
func (user *User) RealName() string {
	return user.realName
}

// Server gets the server the user is connected to, if known.
func (user *User) Server() string {
	return user.server
}

// Account gets the services account, or "" if the user isn't logged in.
func (user *User) Account() string {
	return user.account
}

// Away gets the away message.
func (user *User) Away() string {
	return user.away
}

// IsAway returns true if the user has an away message.
func (user *User) IsAway() bool {
	return user.away != ""
}

// Hops gets the hop count from WHO replies.
func (user *User) Hops() int {
	return user.hops
}

// IsOperator returns true if the user is an IRC operator.
func (user *User) IsOperator() bool {
	return user.operator
}

// IsSnapshot returns true for frozen copies.
func (user *User) IsSnapshot() bool {
	return user.frozen
}

// GeneratedFrom gets the live user a snapshot was made from.
func (user *User) GeneratedFrom() *User {
	return user.generatedFrom
}

// Directory gets the directory the user belongs to. It is nil for snapshots
// made with Directory.SnapshotUser.
func (user *User) Directory() *Directory {
	return user.dir
}

// Channels gets the channels the user is in, or nil if the user isn't part of
// a directory.
func (user *User) Channels() []*Channel {
	if user.dir == nil {
		return nil
	}

	return user.dir.ChannelsOf(user)
}

// SetNick renames the user through its directory.
func (user *User) SetNick(nick string) error {
	if user.frozen || user.dir == nil {
		return user.immutable("SetNick")
	}

	return user.dir.RenameUser(user.nick, nick)
}

// SetLogin sets the ident.
func (user *User) SetLogin(login string) error {
	return user.update("SetLogin", func() { user.login = login })
}

// SetHostname sets the host.
func (user *User) SetHostname(hostname string) error {
	return user.update("SetHostname", func() { user.hostname = hostname })
}

// SetRealName sets the gecos.
func (user *User) SetRealName(realName string) error {
	return user.update("SetRealName", func() { user.realName = realName })
}

// SetServer sets the server.
func (user *User) SetServer(server string) error {
	return user.update("SetServer", func() { user.server = server })
}

// SetAccount sets the account. Use "" or "*" for logged out.
func (user *User) SetAccount(account string) error {
	if account == "*" {
		account = ""
	}

	return user.update("SetAccount", func() { user.account = account })
}

// SetAway sets the away message. Use "" to mark the user as back.
func (user *User) SetAway(message string) error {
	return user.update("SetAway", func() { user.away = message })
}

// SetHops sets the hop count.
func (user *User) SetHops(hops int) error {
	return user.update("SetHops", func() { user.hops = hops })
}

// SetOperator sets whether the user is an IRC operator.
func (user *User) SetOperator(operator bool) error {
	return user.update("SetOperator", func() { user.operator = operator })
}

// SetHostmask fills in the login and host from a hostmask source. Empty parts
// are left alone.
func (user *User) SetHostmask(login, hostname string) error {
	return user.update("SetHostmask", func() {
		if login != "" {
			user.login = login
		}
		if hostname != "" {
			user.hostname = hostname
		}
	})
}

func (user *User) update(operation string, fn func()) error {
	if user.frozen {
		return user.immutable(operation)
	}

	if user.dir != nil {
		user.dir.mutex.Lock()
		defer user.dir.mutex.Unlock()
	}

	fn()

	return nil
}

func (user *User) immutable(operation string) error {
	return &ImmutableStateError{Entity: "user", Name: user.nick, Operation: operation}
}

// freeze copies the user into a frozen user that belongs to dir.
func (user *User) freeze(dir *Directory) *User {
	frozen := *user
	frozen.dir = dir
	frozen.frozen = true
	frozen.generatedFrom = user

	return &frozen
}
