package domain

import "time"

// StageName is the externally visible name of an agent dialogue stage
type StageName string

const (
	StageNameGreeting       StageName = "greeting"
	StageNameAskingDuration StageName = "asking_duration"
	StageNameAnalyzing      StageName = "analyzing"
	StageNameSuggestions    StageName = "suggestions"
	StageNameCustomRequest  StageName = "custom_request"
)

// HistoryDuration is the chat history window the agent analyzes
type HistoryDuration string

const (
	DurationOneDay  HistoryDuration = "1day"
	DurationOneWeek HistoryDuration = "1week"
)

// Days returns the window length in days
func (d HistoryDuration) Days() int {
	if d == DurationOneWeek {
		return 7
	}
	return 1
}

// Since returns the start of the window ending at now
func (d HistoryDuration) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(d.Days()) * 24 * time.Hour)
}

// AgentStage is a sealed union over the agent dialogue stages.
// Each variant carries only the fields valid in that stage.
type AgentStage interface {
	Name() StageName
	sealed()
}

// StageGreeting is the initial stage
type StageGreeting struct{}

// StageAskingDuration waits for the user to pick a history window
type StageAskingDuration struct{}

// StageAnalyzing waits for the partner identifier to analyze
type StageAnalyzing struct {
	Duration HistoryDuration
}

// StageSuggestions holds the last batch of suggestions offered
type StageSuggestions struct {
	PartnerID   string
	Duration    HistoryDuration
	Batch       int
	Suggestions string
}

// StageCustomRequest handles conversation starters and free-form help
type StageCustomRequest struct {
	Initiate     bool   // requestType=initiate
	Relationship string // set once the user described the partner
}

func (StageGreeting) Name() StageName       { return StageNameGreeting }
func (StageAskingDuration) Name() StageName { return StageNameAskingDuration }
func (StageAnalyzing) Name() StageName      { return StageNameAnalyzing }
func (StageSuggestions) Name() StageName    { return StageNameSuggestions }
func (StageCustomRequest) Name() StageName  { return StageNameCustomRequest }

func (StageGreeting) sealed()       {}
func (StageAskingDuration) sealed() {}
func (StageAnalyzing) sealed()      {}
func (StageSuggestions) sealed()    {}
func (StageCustomRequest) sealed()  {}

// AgentSession is the per-user scripted agent state
type AgentSession struct {
	UserID    string
	Stage     AgentStage
	UpdatedAt time.Time
}

// NewAgentSession creates a session at the greeting stage
func NewAgentSession(userID string) *AgentSession {
	return &AgentSession{
		UserID:    userID,
		Stage:     StageGreeting{},
		UpdatedAt: time.Now(),
	}
}

// Advance moves the session to the next stage
func (s *AgentSession) Advance(next AgentStage) {
	s.Stage = next
	s.UpdatedAt = time.Now()
}
