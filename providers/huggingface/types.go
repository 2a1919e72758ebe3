package huggingface

// rawEntry is one item of the daily_papers API response.
type rawEntry struct {
	Paper       rawPaper      `json:"paper"`
	NumComments int           `json:"numComments"`
	Thumbnail   string        `json:"thumbnail"`
	SubmittedBy *rawSubmitter `json:"submittedBy"`
}

type rawPaper struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Upvotes     int         `json:"upvotes"`
	AISummary   string      `json:"ai_summary"`
	AIKeywords  []string    `json:"ai_keywords"`
	PublishedAt string      `json:"publishedAt"`
	GithubRepo  string      `json:"githubRepo"`
	GithubStars int         `json:"githubStars"`
	Authors     []rawAuthor `json:"authors"`
}

type rawAuthor struct {
	Name string `json:"name"`
}

type rawSubmitter struct {
	Name      string `json:"name"`
	Fullname  string `json:"fullname"`
	AvatarURL string `json:"avatarUrl"`
}

// TrendingPaper is the cleaned daily-papers entry served to the dashboard.
type TrendingPaper struct {
	PaperID     string     `json:"paper_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Upvotes     int        `json:"upvotes"`
	AISummary   string     `json:"ai_summary,omitempty"`
	AIKeywords  []string   `json:"ai_keywords,omitempty"`
	PublishedAt string     `json:"published_at"`
	GithubRepo  string     `json:"github_repo,omitempty"`
	GithubStars int        `json:"github_stars,omitempty"`
	NumComments int        `json:"num_comments"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	SubmittedBy *Submitter `json:"submitted_by,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
}

// Submitter identifies who submitted a paper to daily papers.
type Submitter struct {
	Name      string `json:"name"`
	Fullname  string `json:"fullname"`
	AvatarURL string `json:"avatar_url"`
}
