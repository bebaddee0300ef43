package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserAndLookup(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.Name)
	assert.NotZero(t, user.ID)

	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash1", found.PasswordHash)

	missing, err := s.GetUserByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "Alice", "hash1")
	require.NoError(t, err)

	_, err = s.CreateUser("alice", "Other Alice", "hash2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// The first row is untouched.
	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice", found.Name)
}

func TestCreateUserConcurrentDuplicates(t *testing.T) {
	// A busy timeout keeps concurrent writers from failing with SQLITE_BUSY
	// instead of racing for the unique index.
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser("alice", "Alice", "hash")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateUsername):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicates)

	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestUpdateUserPassword(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "Alice", "oldhash")
	require.NoError(t, err)

	require.NoError(t, s.UpdateUserPassword("alice", "newhash"))

	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "newhash", found.PasswordHash)

	assert.ErrorIs(t, s.UpdateUserPassword("nobody", "x"), ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser("alice"))

	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Nil(t, found)

	assert.ErrorIs(t, s.DeleteUser("alice"), ErrNotFound)
}

func TestCreateSessionStartsEmpty(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)

	session, err := s.CreateSession(user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, user.ID, session.UserID)

	messages, err := s.GetMessagesBySessionID(session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetSessionByIDOwnership(t *testing.T) {
	s := newTestStore(t)

	alice, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "Bob", "hash")
	require.NoError(t, err)

	session, err := s.CreateSession(alice.ID)
	require.NoError(t, err)

	found, err := s.GetSessionByID(session.SessionID, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, found)

	// Another user's lookup misses.
	foreign, err := s.GetSessionByID(session.SessionID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, foreign)
}

func TestAppendTurnOrderingAndTimestamps(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)
	session, err := s.CreateSession(user.ID)
	require.NoError(t, err)

	userMsg := Message{Content: "hi"}
	modelMsg := Message{Content: "hello"}
	require.NoError(t, s.AppendTurn(session.SessionID, &userMsg, &modelMsg))

	messages, err := s.GetMessagesBySessionID(session.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "user", messages[0].Sender)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "model", messages[1].Sender)
	assert.Equal(t, "hello", messages[1].Content)
	assert.False(t, messages[1].Timestamp.Before(messages[0].Timestamp))
	assert.Less(t, messages[0].ID, messages[1].ID)
}

func TestGetLastNMessagesChronological(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)
	session, err := s.CreateSession(user.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		u := Message{Content: "q"}
		m := Message{Content: "a"}
		require.NoError(t, s.AppendTurn(session.SessionID, &u, &m))
	}

	last, err := s.GetLastNMessagesBySessionID(session.SessionID, 4)
	require.NoError(t, err)
	require.Len(t, last, 4)
	for i := 1; i < len(last); i++ {
		assert.Less(t, last[i-1].ID, last[i].ID, "history must be chronological")
	}
}

func TestAppendTurnStoresMermaidAndImage(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)
	session, err := s.CreateSession(user.ID)
	require.NoError(t, err)

	diagram := "graph TD; A-->B;"
	userMsg := Message{Content: "draw it"}
	modelMsg := Message{Content: "here you go", MermaidCode: &diagram, Image: []byte{0x89, 0x50}}
	require.NoError(t, s.AppendTurn(session.SessionID, &userMsg, &modelMsg))

	messages, err := s.GetMessagesBySessionID(session.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Nil(t, messages[0].MermaidCode)
	require.NotNil(t, messages[1].MermaidCode)
	assert.Equal(t, diagram, *messages[1].MermaidCode)
	assert.Equal(t, []byte{0x89, 0x50}, messages[1].Image)
}

func TestListSessionsByUser(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "Alice", "hash")
	require.NoError(t, err)

	_, err = s.CreateSession(user.ID)
	require.NoError(t, err)
	_, err = s.CreateSession(user.ID)
	require.NoError(t, err)

	sessions, err := s.GetSessionsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
