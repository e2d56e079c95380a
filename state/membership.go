package state

import "sync"

// membershipTable associates users with channels, with one partition per
// level. Every member is in the LevelNormal partition, and in one more
// partition for each level it holds.
//
// The exported-style methods (capitalized) take the lock and must only use
// the partition primitives and the lowercase helpers below. Calling one of
// them from another would take the lock twice.
type membershipTable struct {
	mutex      sync.RWMutex
	partitions [levelCount]partition
}

type partition struct {
	byUser    map[*User]map[*Channel]struct{}
	byChannel map[*Channel]map[*User]struct{}
}

func newMembershipTable() *membershipTable {
	table := &membershipTable{}
	for i := range table.partitions {
		table.partitions[i] = newPartition()
	}

	return table
}

// Add adds the user to the channel at the level. Adding a level also makes the
// user a plain member.
func (table *membershipTable) Add(user *User, channel *Channel, level Level) {
	table.mutex.Lock()
	defer table.mutex.Unlock()

	table.partitions[LevelNormal].add(user, channel)
	if level != LevelNormal {
		table.partitions[level].add(user, channel)
	}
}

// RemoveLevel takes a level from a member, leaving the membership intact.
func (table *membershipTable) RemoveLevel(user *User, channel *Channel, level Level) bool {
	if level == LevelNormal {
		return false
	}

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.partitions[level].remove(user, channel)
}

// Remove removes the user from the channel in every partition. It returns the
// number of members left in the channel.
func (table *membershipTable) Remove(user *User, channel *Channel) (remaining int) {
	table.mutex.Lock()
	defer table.mutex.Unlock()

	for i := range table.partitions {
		table.partitions[i].remove(user, channel)
	}

	return len(table.partitions[LevelNormal].byChannel[channel])
}

// RemoveUser removes all the user's memberships, and returns the channels it
// was in.
func (table *membershipTable) RemoveUser(user *User) []*Channel {
	table.mutex.Lock()
	defer table.mutex.Unlock()

	channels := table.partitions[LevelNormal].channels(user)
	for i := range table.partitions {
		table.partitions[i].removeUser(user)
	}

	return channels
}

// RemoveChannel removes all memberships in the channel, and returns the users
// that were in it.
func (table *membershipTable) RemoveChannel(channel *Channel) []*User {
	table.mutex.Lock()
	defer table.mutex.Unlock()

	users := table.partitions[LevelNormal].users(channel)
	for i := range table.partitions {
		table.partitions[i].removeChannel(channel)
	}

	return users
}

// Contains returns true if the user is in the channel at that level.
func (table *membershipTable) Contains(user *User, channel *Channel, level Level) bool {
	if !level.valid() {
		return false
	}

	table.mutex.RLock()
	defer table.mutex.RUnlock()

	return table.partitions[level].contains(user, channel)
}

// Users gets the users in the channel at the level.
func (table *membershipTable) Users(channel *Channel, level Level) []*User {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	return table.partitions[level].users(channel)
}

// Channels gets the channels where the user has the level.
func (table *membershipTable) Channels(user *User, level Level) []*Channel {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	return table.partitions[level].channels(user)
}

// Levels gets the levels the user has in the channel, highest first. A member
// without any elevated level gets LevelNormal, a non-member gets nothing.
func (table *membershipTable) Levels(user *User, channel *Channel) []Level {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	return table.levels(user, channel)
}

// Count gets the number of members in the channel.
func (table *membershipTable) Count(channel *Channel) int {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	return len(table.partitions[LevelNormal].byChannel[channel])
}

// Copy makes a new table with every user and channel replaced by its
// counterpart in the maps. Entries without a counterpart are left out.
func (table *membershipTable) Copy(users map[*User]*User, channels map[*Channel]*Channel) *membershipTable {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	result := newMembershipTable()
	for i := range table.partitions {
		for user, userChannels := range table.partitions[i].byUser {
			userCopy, ok := users[user]
			if !ok {
				continue
			}

			for channel := range userChannels {
				if channelCopy, ok := channels[channel]; ok {
					result.partitions[i].add(userCopy, channelCopy)
				}
			}
		}
	}

	return result
}

func (table *membershipTable) levels(user *User, channel *Channel) []Level {
	if !table.partitions[LevelNormal].contains(user, channel) {
		return nil
	}

	levels := make([]Level, 0, 2)
	for level := Level(levelCount - 1); level > LevelNormal; level-- {
		if table.partitions[level].contains(user, channel) {
			levels = append(levels, level)
		}
	}
	if len(levels) == 0 {
		levels = append(levels, LevelNormal)
	}

	return levels
}

func newPartition() partition {
	return partition{
		byUser:    make(map[*User]map[*Channel]struct{}),
		byChannel: make(map[*Channel]map[*User]struct{}),
	}
}

func (p *partition) add(user *User, channel *Channel) {
	if p.byUser[user] == nil {
		p.byUser[user] = make(map[*Channel]struct{}, 4)
	}
	if p.byChannel[channel] == nil {
		p.byChannel[channel] = make(map[*User]struct{}, 16)
	}

	p.byUser[user][channel] = struct{}{}
	p.byChannel[channel][user] = struct{}{}
}

func (p *partition) remove(user *User, channel *Channel) bool {
	if !p.contains(user, channel) {
		return false
	}

	delete(p.byUser[user], channel)
	if len(p.byUser[user]) == 0 {
		delete(p.byUser, user)
	}

	delete(p.byChannel[channel], user)
	if len(p.byChannel[channel]) == 0 {
		delete(p.byChannel, channel)
	}

	return true
}

func (p *partition) removeUser(user *User) {
	for channel := range p.byUser[user] {
		delete(p.byChannel[channel], user)
		if len(p.byChannel[channel]) == 0 {
			delete(p.byChannel, channel)
		}
	}

	delete(p.byUser, user)
}

func (p *partition) removeChannel(channel *Channel) {
	for user := range p.byChannel[channel] {
		delete(p.byUser[user], channel)
		if len(p.byUser[user]) == 0 {
			delete(p.byUser, user)
		}
	}

	delete(p.byChannel, channel)
}

func (p *partition) contains(user *User, channel *Channel) bool {
	_, ok := p.byUser[user][channel]
	return ok
}

func (p *partition) users(channel *Channel) []*User {
	users := make([]*User, 0, len(p.byChannel[channel]))
	for user := range p.byChannel[channel] {
		users = append(users, user)
	}

	return users
}

func (p *partition) channels(user *User) []*Channel {
	channels := make([]*Channel, 0, len(p.byUser[user]))
	for channel := range p.byUser[user] {
		channels = append(channels, channel)
	}

	return channels
}
