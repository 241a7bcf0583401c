package database

// Chamber names as they appear in source data.
const (
	HouseOfRepresentatives = "衆議院"
	HouseOfCouncillors     = "参議院"
)

// Vote directions recorded on bill votes.
const (
	VoteFor     = "賛成"
	VoteAgainst = "反対"
)

// Meeting is one sitting of a committee or plenary, keyed by IssueID.
type Meeting struct {
	ID          int64
	IssueID     string
	Session     *int
	House       *string
	MeetingName *string
	IssueNumber *string
	Date        *string
	MeetingURL  *string
}

// Speech is one utterance within a meeting, keyed by SpeechID.
type Speech struct {
	ID              int64
	SpeechID        string
	MeetingID       int64
	LegislatorID    *int64
	SpeechOrder     *int
	SpeakerName     *string
	SpeakerGroup    *string
	SpeakerPosition *string
	Content         *string
	SpeechURL       *string
	Date            *string
}

// Legislator is a speaker identified by normalized full name.
type Legislator struct {
	ID              int64
	Name            string
	CurrentParty    *string
	CurrentPosition *string
	House           *string
	IsMember        bool
	LastSeen        string // YYYY-MM-DD, empty when unknown
}

// BillKey is the composite natural key of a bill. Unknown numeric parts
// are zero and an unknown type is empty.
type BillKey struct {
	House         string
	SubmitSession int
	BillType      string
	BillNumber    int
}

// Bill is a piece of legislation filed in one chamber.
type Bill struct {
	ID            int64
	House         string
	SubmitSession int
	BillType      string
	BillNumber    int
	Session       *int // session in which the row was listed
	BillName      string
	Caption       *string
	Status        *string
	Proposer      *string
	ProposerParty *string
	Committee     *string
	DateSubmitted *string
	DatePassed    *string
	Result        *string
	LawNumber     *string
	ProgressURL   *string
}

// Key returns the bill's natural key.
func (b Bill) Key() BillKey {
	return BillKey{
		House:         b.House,
		SubmitSession: b.SubmitSession,
		BillType:      b.BillType,
		BillNumber:    b.BillNumber,
	}
}

// Vote is a party's recorded position on a bill in one chamber.
type Vote struct {
	ID        int64
	BillID    int64
	PartyName string
	Vote      string
	Chamber   string
}

// NewsArticle is a news item collected for a legislator or a static feed.
type NewsArticle struct {
	ID             int64
	URL            string
	Title          string
	Source         *string
	PublishedDate  *string
	Content        *string
	ContentFetched bool
	LegislatorID   *int64
	CollectedAt    *string
}

// EntityCounts is one entity's line in a run report.
type EntityCounts struct {
	Entity    string `json:"entity"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Dropped   int    `json:"dropped"`
	Failed    int    `json:"failed"`
}

// RunReport records the outcome of one command invocation.
type RunReport struct {
	ID         int64
	RunID      string
	Kind       string
	PeriodID   string
	Status     string
	Fetched    int
	Malformed  int
	Linked     int
	Counts     []EntityCounts
	ErrorText  *string
	StartedAt  string
	FinishedAt *string
}

// Stats holds table counts for the status command.
type Stats struct {
	Meetings         int
	Speeches         int
	UnlinkedSpeeches int
	Legislators      int
	Members          int
	Bills            int
	Votes            int
	NewsArticles     int
	LatestSpeechDate string
	RunReports       int
}
