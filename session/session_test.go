package session

import (
	"testing"
)

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Create_Get_Remove(t *testing.T) {
	manager := NewManager()

	sess := manager.Create()
	if sess.Token == "" {
		t.Fatal("Create should assign a token")
	}
	if sess.UserID == 0 {
		t.Fatal("Create should assign a user ID")
	}
	if len(manager.sessions) != 1 {
		t.Fatalf("Expected session count to be 1, got %d", len(manager.sessions))
	}

	// Test Get
	retrievedSess, exists := manager.Get(sess.Token)
	if !exists {
		t.Fatal("Get should find the created session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sess.Token)
	if len(manager.sessions) != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", len(manager.sessions))
	}

	_, exists = manager.Get(sess.Token)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_Create_UniqueUsers(t *testing.T) {
	manager := NewManager()

	sess1 := manager.Create()
	sess2 := manager.Create()

	if sess1.UserID == sess2.UserID {
		t.Errorf("Expected distinct user IDs, both got %d", sess1.UserID)
	}
	if sess1.Token == sess2.Token {
		t.Error("Expected distinct tokens")
	}
}

func TestManager_GetByUserID(t *testing.T) {
	manager := NewManager()

	sess1 := manager.Create()
	manager.Create()

	found := manager.GetByUserID(sess1.UserID)
	if len(found) != 1 {
		t.Errorf("Expected 1 session for UserID %d, got %d", sess1.UserID, len(found))
	}

	missing := manager.GetByUserID(99999)
	if len(missing) != 0 {
		t.Errorf("Expected 0 sessions for unknown user, got %d", len(missing))
	}
}

func TestSession_Set_Get(t *testing.T) {
	sess := NewManager().Create()
	key := "test_key"
	value := "test_value"

	sess.Set(key, value)

	retrievedValue := sess.Get(key)
	if retrievedValue != value {
		t.Errorf("Expected value %v, got %v", value, retrievedValue)
	}

	nilValue := sess.Get("non_existent_key")
	if nilValue != nil {
		t.Errorf("Expected nil for non-existent key, got %v", nilValue)
	}
}
