package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
)

var testStages = []domain.AgentStage{
	domain.StageGreeting{},
	domain.StageAskingDuration{},
	domain.StageAnalyzing{Duration: domain.DurationOneWeek},
	domain.StageSuggestions{PartnerID: "bob", Duration: domain.DurationOneDay, Batch: 2, Suggestions: "1. hi"},
	domain.StageCustomRequest{Initiate: true, Relationship: "a new colleague"},
}

func exerciseAgentSessionRepo(t *testing.T, r repo.AgentSessionRepo, userID string) {
	t.Helper()
	ctx := context.Background()

	got, err := r.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Expected no session, got %+v", got)
	}

	for _, stage := range testStages {
		s := &domain.AgentSession{UserID: userID, Stage: stage, UpdatedAt: baseTime}
		if err := r.Save(ctx, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := r.Get(ctx, userID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected session")
		}
		if got.Stage != stage {
			t.Errorf("Expected stage %+v, got %+v", stage, got.Stage)
		}
	}

	if err := r.Delete(ctx, userID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := r.Delete(ctx, userID); err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	got, _ = r.Get(ctx, userID)
	if got != nil {
		t.Errorf("Expected session to be deleted, got %+v", got)
	}
}

func TestMemoryAgentSessionRepo(t *testing.T) {
	exerciseAgentSessionRepo(t, NewMemoryAgentSessionRepo(), "alice")
}

func TestMemoryAgentSessionRepo_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryAgentSessionRepo()
	_ = r.Save(ctx, domain.NewAgentSession("alice"))

	got, _ := r.Get(ctx, "alice")
	got.Advance(domain.StageAskingDuration{})

	again, _ := r.Get(ctx, "alice")
	if again.Stage.Name() != domain.StageNameGreeting {
		t.Errorf("Expected stored session to be unchanged, got %s", again.Stage.Name())
	}
}

func TestDecodeAgentSession_UnknownStage(t *testing.T) {
	if _, err := decodeAgentSession(agentSessionRecord{UserID: "alice", Stage: "dancing"}); err == nil {
		t.Error("Expected error for unknown stage")
	}
}

func TestRedisAgentSessionRepo(t *testing.T) {
	addr := os.Getenv("CHATMATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATMATE_TEST_REDIS_ADDR not set")
	}
	rdb, err := OpenRedis(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatalf("OpenRedis failed: %v", err)
	}
	defer rdb.Close()

	exerciseAgentSessionRepo(t, NewRedisAgentSessionRepo(rdb, time.Minute), "test_"+newMessageID())
}

func TestRedisPresenceRepo(t *testing.T) {
	addr := os.Getenv("CHATMATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATMATE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := OpenRedis(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("OpenRedis failed: %v", err)
	}
	defer rdb.Close()

	r := NewRedisPresenceRepo(rdb)
	user := "test_" + newMessageID()

	if _, online, _ := r.Lookup(ctx, user); online {
		t.Error("Expected offline before MarkOnline")
	}
	if err := r.MarkOnline(ctx, user, "conn-1", time.Minute); err != nil {
		t.Fatalf("MarkOnline failed: %v", err)
	}
	connID, online, err := r.Lookup(ctx, user)
	if err != nil || !online || connID != "conn-1" {
		t.Errorf("Expected online on conn-1, got %s, %v, %v", connID, online, err)
	}
	if err := r.MarkOffline(ctx, user); err != nil {
		t.Fatalf("MarkOffline failed: %v", err)
	}
	if _, online, _ := r.Lookup(ctx, user); online {
		t.Error("Expected offline after MarkOffline")
	}
}

func TestMongoRepos(t *testing.T) {
	uri := os.Getenv("CHATMATE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CHATMATE_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := OpenMongo(ctx, uri, "chatmate_test", 5)
	if err != nil {
		t.Fatalf("OpenMongo failed: %v", err)
	}
	defer store.Close()

	messages := NewMongoMessageRepo(store)
	a, b := "mg_a_"+newMessageID(), "mg_b_"+newMessageID()
	saveAt(t, messages, a, b, "one", baseTime)
	saveAt(t, messages, b, a, "two", baseTime.Add(time.Second))

	page, err := messages.ListBetween(ctx, a, b, 0, 10)
	if err != nil {
		t.Fatalf("ListBetween failed: %v", err)
	}
	if len(page) != 2 || page[0].Text != "two" {
		t.Errorf("Expected newest first, got %+v", page)
	}
	if n, _ := messages.MarkRead(ctx, a, b, baseTime); n != 1 {
		t.Errorf("Expected 1 updated, got %d", n)
	}
	if n, _ := messages.MarkRead(ctx, a, b, baseTime); n != 0 {
		t.Errorf("Expected 0 on second call, got %d", n)
	}

	users := NewMongoUserRepo(store)
	id := "mg_u_" + newMessageID()
	phone := "9" + time.Now().Format("150405000")
	if err := users.Create(ctx, &domain.User{UserID: id, PhoneNumber: phone, Name: "M", PasswordHash: "x", CreatedAt: baseTime}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, _ := users.FindByIdentifier(ctx, phone)
	if got == nil || got.UserID != id {
		t.Errorf("Expected user by phone, got %v", got)
	}
}
