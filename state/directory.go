package state

import (
	"sort"
	"sync"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/gissleh/ircbot/isupport"
	"golang.org/x/text/language"
)

// A Directory holds every user and channel of one connection, and the
// memberships between them. Names are looked up case-insensitively using
// the locale and the server's CASEMAPPING.
//
// Only one goroutine should change a live directory, other goroutines can
// read it safely but should prefer a snapshot. Snapshots are directories too,
// but every change to them fails with an ImmutableStateError.
type Directory struct {
	mutex         sync.RWMutex
	frozen        bool
	generatedFrom *Directory

	isupport    *isupport.ISupport
	caseMapping string
	locale      language.Tag

	users    map[string]*User
	channels map[string]*Channel
	members  *membershipTable
}

// NewDirectory creates an empty directory. The isupport is used for its
// CASEMAPPING, and can be nil.
func NewDirectory(is *isupport.ISupport, locale language.Tag) *Directory {
	return &Directory{
		isupport: is,
		locale:   locale,
		users:    make(map[string]*User, 64),
		channels: make(map[string]*Channel, 8),
		members:  newMembershipTable(),
	}
}

// IsSnapshot returns true for frozen directories.
func (dir *Directory) IsSnapshot() bool {
	return dir.frozen
}

// GeneratedFrom gets the live directory a snapshot was made from.
func (dir *Directory) GeneratedFrom() *Directory {
	return dir.generatedFrom
}

// Fold gets the lookup key for a nick or channel name.
func (dir *Directory) Fold(name string) string {
	return Fold(dir.locale, dir.mapping(), name)
}

// User finds a user by nick.
func (dir *Directory) User(nick string) (*User, error) {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	user, ok := dir.users[dir.Fold(nick)]
	if !ok {
		return nil, &UnknownEntityError{Kind: UnknownUser, Name: nick}
	}

	return user, nil
}

// Channel finds a channel by name.
func (dir *Directory) Channel(name string) (*Channel, error) {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	channel, ok := dir.channels[dir.Fold(name)]
	if !ok {
		return nil, &UnknownEntityError{Kind: UnknownChannel, Name: name}
	}

	return channel, nil
}

// UserByHostmask finds a user by a nick!user@host mask. The nick must be known,
// and the login and host must match the user's if both sides have them.
func (dir *Directory) UserByHostmask(mask string) (*User, error) {
	nuh, err := ircmsg.ParseNUH(mask)
	if err != nil || nuh.Name == "" {
		return nil, &UnknownEntityError{Kind: UnknownHostmask, Name: mask}
	}

	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	user, ok := dir.users[dir.Fold(nuh.Name)]
	if !ok {
		return nil, &UnknownEntityError{Kind: UnknownHostmask, Name: mask}
	}
	if nuh.User != "" && user.login != "" && nuh.User != user.login {
		return nil, &UnknownEntityError{Kind: UnknownHostmask, Name: mask}
	}
	if nuh.Host != "" && user.hostname != "" && nuh.Host != user.hostname {
		return nil, &UnknownEntityError{Kind: UnknownHostmask, Name: mask}
	}

	return user, nil
}

// ContainsUser returns true if the nick is known.
func (dir *Directory) ContainsUser(nick string) bool {
	_, err := dir.User(nick)
	return err == nil
}

// ContainsChannel returns true if the channel is known.
func (dir *Directory) ContainsChannel(name string) bool {
	_, err := dir.Channel(name)
	return err == nil
}

// GetOrCreateUser finds a user, or adds a new one with that nick.
func (dir *Directory) GetOrCreateUser(nick string) (*User, error) {
	if dir.frozen {
		return nil, dir.immutable("GetOrCreateUser")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	key := dir.Fold(nick)
	if user, ok := dir.users[key]; ok {
		return user, nil
	}

	user := &User{dir: dir, nick: nick}
	dir.users[key] = user

	return user, nil
}

// GetOrCreateChannel finds a channel, or adds a new one with that name.
func (dir *Directory) GetOrCreateChannel(name string) (*Channel, error) {
	if dir.frozen {
		return nil, dir.immutable("GetOrCreateChannel")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	key := dir.Fold(name)
	if channel, ok := dir.channels[key]; ok {
		return channel, nil
	}

	channel := &Channel{dir: dir, name: name}
	dir.channels[key] = channel

	return channel, nil
}

// RenameUser changes a user's nick. Memberships follow the user. A different
// user already known by the new nick is a leftover and gets removed.
func (dir *Directory) RenameUser(oldNick, newNick string) error {
	if dir.frozen {
		return dir.immutable("RenameUser")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	oldKey := dir.Fold(oldNick)
	user, ok := dir.users[oldKey]
	if !ok {
		return &UnknownEntityError{Kind: UnknownUser, Name: oldNick}
	}

	newKey := dir.Fold(newNick)
	if stale, ok := dir.users[newKey]; ok && stale != user {
		dir.removeUser(newKey, stale)
	}

	delete(dir.users, oldKey)
	user.nick = newNick
	dir.users[newKey] = user

	return nil
}

// AddMembership puts the user in the channel at the level. Both must belong
// to this directory.
func (dir *Directory) AddMembership(user *User, channel *Channel, level Level) error {
	if dir.frozen {
		return dir.immutable("AddMembership")
	}
	if !level.valid() {
		return ErrInvalidLevel
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	if err := dir.checkOwned(user, channel); err != nil {
		return err
	}

	dir.members.Add(user, channel, level)

	return nil
}

// RemoveLevel takes a level from a member.
func (dir *Directory) RemoveLevel(user *User, channel *Channel, level Level) error {
	if dir.frozen {
		return dir.immutable("RemoveLevel")
	}
	if !level.valid() {
		return ErrInvalidLevel
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	if err := dir.checkOwned(user, channel); err != nil {
		return err
	}

	dir.members.RemoveLevel(user, channel, level)

	return nil
}

// RemoveMembership takes the user out of the channel at every level. A
// channel left without members is removed.
func (dir *Directory) RemoveMembership(user *User, channel *Channel) error {
	if dir.frozen {
		return dir.immutable("RemoveMembership")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	if err := dir.checkOwned(user, channel); err != nil {
		return err
	}

	if dir.members.Remove(user, channel) == 0 {
		delete(dir.channels, dir.Fold(channel.name))
	}

	return nil
}

// ApplyMode applies a mode change like "+nt" or "-s" to the channel. A change
// that carries arguments isn't applied, and refresh is returned so the caller
// can ask the server for the full mode instead.
func (dir *Directory) ApplyMode(channel *Channel, raw string) (refresh bool, err error) {
	if dir.frozen {
		return false, dir.immutable("ApplyMode")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	if err := dir.checkOwned(nil, channel); err != nil {
		return false, err
	}

	channel.mode, refresh = applyModeString(channel.mode, raw)

	return refresh, nil
}

// RemoveUser forgets a user and its memberships. Channels left empty are
// removed as well.
func (dir *Directory) RemoveUser(nick string) error {
	if dir.frozen {
		return dir.immutable("RemoveUser")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	key := dir.Fold(nick)
	user, ok := dir.users[key]
	if !ok {
		return &UnknownEntityError{Kind: UnknownUser, Name: nick}
	}

	dir.removeUser(key, user)

	return nil
}

// RemoveChannel forgets a channel and its memberships. The members stay
// known.
func (dir *Directory) RemoveChannel(name string) error {
	if dir.frozen {
		return dir.immutable("RemoveChannel")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	key := dir.Fold(name)
	channel, ok := dir.channels[key]
	if !ok {
		return &UnknownEntityError{Kind: UnknownChannel, Name: name}
	}

	dir.members.RemoveChannel(channel)
	delete(dir.channels, key)

	return nil
}

// Rekey rebuilds the lookup keys, which is needed when the CASEMAPPING
// changes after users have been added.
func (dir *Directory) Rekey() error {
	if dir.frozen {
		return dir.immutable("Rekey")
	}

	dir.mutex.Lock()
	defer dir.mutex.Unlock()

	users := make(map[string]*User, len(dir.users))
	for _, user := range dir.users {
		users[dir.Fold(user.nick)] = user
	}
	channels := make(map[string]*Channel, len(dir.channels))
	for _, channel := range dir.channels {
		channels[dir.Fold(channel.name)] = channel
	}

	dir.users = users
	dir.channels = channels

	return nil
}

// Users gets all users sorted by nick.
func (dir *Directory) Users() []*User {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	users := make([]*User, 0, len(dir.users))
	for _, user := range dir.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return dir.Fold(users[i].nick) < dir.Fold(users[j].nick)
	})

	return users
}

// Channels gets all channels sorted by name.
func (dir *Directory) Channels() []*Channel {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	channels := make([]*Channel, 0, len(dir.channels))
	for _, channel := range dir.channels {
		channels = append(channels, channel)
	}
	sortChannels(dir, channels)

	return channels
}

// UsersIn gets the members of the channel, highest level first and then by
// nick.
func (dir *Directory) UsersIn(channel *Channel) []*User {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	users := dir.members.Users(channel, LevelNormal)
	highest := make(map[*User]Level, len(users))
	for _, user := range users {
		highest[user] = dir.members.Levels(user, channel)[0]
	}

	sort.Slice(users, func(i, j int) bool {
		if highest[users[i]] != highest[users[j]] {
			return highest[users[i]] > highest[users[j]]
		}

		return dir.Fold(users[i].nick) < dir.Fold(users[j].nick)
	})

	return users
}

// UsersAt gets the members of the channel that have the level, by nick.
func (dir *Directory) UsersAt(channel *Channel, level Level) []*User {
	if !level.valid() {
		return nil
	}

	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	users := dir.members.Users(channel, level)
	sort.Slice(users, func(i, j int) bool {
		return dir.Fold(users[i].nick) < dir.Fold(users[j].nick)
	})

	return users
}

// ChannelsOf gets the channels the user is in, by name.
func (dir *Directory) ChannelsOf(user *User) []*Channel {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	channels := dir.members.Channels(user, LevelNormal)
	sortChannels(dir, channels)

	return channels
}

// Levels gets the user's levels in the channel, highest first.
func (dir *Directory) Levels(user *User, channel *Channel) []Level {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	return dir.members.Levels(user, channel)
}

// Counts gets the number of users and channels.
func (dir *Directory) Counts() (users, channels int) {
	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	return len(dir.users), len(dir.channels)
}

// removeUser must be called with the write lock held.
func (dir *Directory) removeUser(key string, user *User) {
	for _, channel := range dir.members.RemoveUser(user) {
		if dir.members.Count(channel) == 0 {
			delete(dir.channels, dir.Fold(channel.name))
		}
	}

	delete(dir.users, key)
}

// checkOwned must be called with a lock held. A nil user is not checked.
func (dir *Directory) checkOwned(user *User, channel *Channel) error {
	if user != nil && (user.dir != dir || dir.users[dir.Fold(user.nick)] != user) {
		return &UnknownEntityError{Kind: UnknownUser, Name: user.nick}
	}
	if channel != nil && (channel.dir != dir || dir.channels[dir.Fold(channel.name)] != channel) {
		return &UnknownEntityError{Kind: UnknownChannel, Name: channel.name}
	}

	return nil
}

func (dir *Directory) mapping() string {
	if dir.frozen || dir.isupport == nil {
		if dir.caseMapping == "" {
			return isupport.DefaultCaseMapping
		}

		return dir.caseMapping
	}

	return dir.isupport.CaseMapping()
}

func (dir *Directory) immutable(operation string) error {
	return &ImmutableStateError{Entity: "directory", Operation: operation}
}

func sortChannels(dir *Directory, channels []*Channel) {
	sort.Slice(channels, func(i, j int) bool {
		return dir.Fold(channels[i].name) < dir.Fold(channels[j].name)
	})
}
