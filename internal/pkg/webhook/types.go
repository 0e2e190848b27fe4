package webhook

// Event types we act on; everything else is acknowledged and ignored.
const (
	EventInstallation             = "installation"
	EventInstallationRepositories = "installation_repositories"
	EventPullRequest              = "pull_request"
)

// Terminal statuses reported to the webhook caller. Application-level
// outcomes are always delivered with HTTP 200 so the provider does not
// redeliver.
const (
	StatusInstallationReceived = "installation_received"
	StatusIgnoredEvent         = "ignored"
	StatusInstallationNotFound = "installation_not_found"
	StatusUserNotLinked        = "user_not_linked"
	StatusPlanNotFound         = "plan_not_found"
	StatusRepoDisabled         = "repo_disabled"
	StatusLimitReached         = "limit_reached"
	StatusSkipped              = "skipped"
	StatusSuccess              = "success"
	StatusError                = "error"
)

// Result is the structured per-event status returned to the caller.
type Result struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Event    string `json:"event,omitempty"`
	Repo     string `json:"repo,omitempty"`
	PRNumber int    `json:"pr_number,omitempty"`
}

// Options carries per-request overrides. A caller-supplied token replaces
// broker-issued installation tokens for this event only.
type Options struct {
	TokenOverride string
}

type accountRef struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type installationRef struct {
	ID      int64      `json:"id"`
	Account accountRef `json:"account"`
}

type repoRef struct {
	FullName string `json:"full_name"`
}

type branchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type installationPayload struct {
	Action       string          `json:"action"`
	Installation installationRef `json:"installation"`
	Repositories []repoRef       `json:"repositories"`
}

type installationReposPayload struct {
	Action              string          `json:"action"`
	Installation        installationRef `json:"installation"`
	RepositoriesAdded   []repoRef       `json:"repositories_added"`
	RepositoriesRemoved []repoRef       `json:"repositories_removed"`
}

type pullRequestPayload struct {
	Action       string          `json:"action"`
	Installation installationRef `json:"installation"`
	Repository   repoRef         `json:"repository"`
	PullRequest  struct {
		Number int       `json:"number"`
		Head   branchRef `json:"head"`
		Base   branchRef `json:"base"`
	} `json:"pull_request"`
}
