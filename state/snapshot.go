package state

// Snapshot makes a frozen copy of the whole directory. The copy shares no
// mutable data with the live directory, so it can be handed to any goroutine.
func (dir *Directory) Snapshot() (*Directory, error) {
	if dir.frozen {
		return nil, dir.immutable("Snapshot")
	}

	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	snapshot := dir.frozenCopy(len(dir.users), len(dir.channels))

	users := make(map[*User]*User, len(dir.users))
	for key, user := range dir.users {
		users[user] = user.freeze(snapshot)
		snapshot.users[key] = users[user]
	}

	channels := make(map[*Channel]*Channel, len(dir.channels))
	for key, channel := range dir.channels {
		channels[channel] = channel.freeze(snapshot)
		snapshot.channels[key] = channels[channel]
	}

	snapshot.members = dir.members.Copy(users, channels)

	return snapshot, nil
}

// SnapshotChannel makes a frozen copy of one channel. The copy belongs to a
// frozen directory that holds only the channel and its members, so the members
// and their levels can be looked up through it.
func (dir *Directory) SnapshotChannel(channel *Channel) (*Channel, error) {
	if dir.frozen {
		return nil, dir.immutable("SnapshotChannel")
	}
	if channel.IsSnapshot() {
		return nil, channel.immutable("Snapshot")
	}

	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	if err := dir.checkOwned(nil, channel); err != nil {
		return nil, err
	}

	members := dir.members.Users(channel, LevelNormal)
	snapshot := dir.frozenCopy(len(members), 1)

	users := make(map[*User]*User, len(members))
	for _, user := range members {
		users[user] = user.freeze(snapshot)
		snapshot.users[dir.Fold(user.nick)] = users[user]
	}

	channelCopy := channel.freeze(snapshot)
	snapshot.channels[dir.Fold(channel.name)] = channelCopy
	snapshot.members = dir.members.Copy(users, map[*Channel]*Channel{channel: channelCopy})

	return channelCopy, nil
}

// SnapshotUser makes a frozen copy of one user. The copy is not part of any
// directory, so its Channels method returns nil. Take a directory snapshot
// to see the user's memberships.
func (dir *Directory) SnapshotUser(user *User) (*User, error) {
	if dir.frozen {
		return nil, dir.immutable("SnapshotUser")
	}
	if user.IsSnapshot() {
		return nil, user.immutable("Snapshot")
	}

	dir.mutex.RLock()
	defer dir.mutex.RUnlock()

	if err := dir.checkOwned(user, nil); err != nil {
		return nil, err
	}

	return user.freeze(nil), nil
}

func (dir *Directory) frozenCopy(users, channels int) *Directory {
	return &Directory{
		frozen:        true,
		generatedFrom: dir,
		caseMapping:   dir.mapping(),
		locale:        dir.locale,
		users:         make(map[string]*User, users),
		channels:      make(map[string]*Channel, channels),
	}
}
