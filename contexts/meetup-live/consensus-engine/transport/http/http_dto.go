package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CandidateDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type InitSessionRequest struct {
	ParticipantCount int            `json:"participant_count"`
	Candidates       []CandidateDTO `json:"candidates"`
}

type RestartSessionRequest struct {
	Candidates       []CandidateDTO `json:"candidates"`
	ParticipantCount *int           `json:"participant_count,omitempty"`
}

type SubmitVoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
	Decision    string `json:"decision"`
}

type FinalizeRequest struct {
	CandidateID string `json:"candidate_id"`
}

type BannerResponse struct {
	CandidateID      string  `json:"candidate_id"`
	Type             string  `json:"type"`
	Score            float64 `json:"score"`
	Likes            int     `json:"likes"`
	Viewers          int     `json:"viewers"`
	ParticipantCount int     `json:"participant_count"`
	ComputedAt       int64   `json:"computed_at"`
}

type SessionResponse struct {
	SessionID          string          `json:"session_id"`
	ParticipantCount   int             `json:"participant_count"`
	Queue              []CandidateDTO  `json:"queue"`
	Cursor             int             `json:"cursor"`
	CurrentBanner      *BannerResponse `json:"current_banner,omitempty"`
	LastBannerUpdateAt int64           `json:"last_banner_update_at,omitempty"`
	FinalizedCandidate *CandidateDTO   `json:"finalized_candidate,omitempty"`
	FinalizedAt        int64           `json:"finalized_at,omitempty"`
	StartedAt          int64           `json:"started_at"`
	Finished           bool            `json:"finished"`
}

type TallyResponse struct {
	CandidateID string `json:"candidate_id"`
	Likes       int    `json:"likes"`
	Passes      int    `json:"passes"`
	Viewers     int    `json:"viewers"`
	UpdatedAt   int64  `json:"updated_at"`
}

type SubmitVoteResponse struct {
	Tally    TallyResponse   `json:"tally"`
	Banner   *BannerResponse `json:"banner,omitempty"`
	Advanced bool            `json:"advanced"`
}

type AdvanceResponse struct {
	Advanced bool `json:"advanced"`
}

type ShouldResetResponse struct {
	ShouldReset bool `json:"should_reset"`
}

type StandingItem struct {
	Candidate  CandidateDTO `json:"candidate"`
	Likes      int          `json:"likes"`
	Passes     int          `json:"passes"`
	Viewers    int          `json:"viewers"`
	Score      float64      `json:"score"`
	Percentage float64      `json:"percentage"`
}

type StandingsResponse struct {
	Items []StandingItem `json:"items"`
}

type TalliesResponse struct {
	Tallies map[string]TallyResponse `json:"tallies"`
}
