package hub

// RepoInventory summarizes the file layout of a code repository.
type RepoInventory struct {
	HasTests     bool
	HasCI        bool
	HasLint      bool
	HasReadme    bool
	HasPackaging bool
	SourceFiles  int
}

// Evidence is everything the metrics need about one classified row.
// Fields that could not be fetched stay at their zero value and the
// corresponding Unavailable flag is set so metrics can emit the -1
// sentinel instead of a misleading zero score.
type Evidence struct {
	Name     string
	Category string

	ModelURL   string
	DatasetURL string
	CodeURL    string

	// Model card, from the Hugging Face models API.
	License          string
	Tags             []string
	Downloads        int64
	Likes            int64
	HasWidget        bool
	HasModelIndex    bool
	HasPaper         bool
	WeightSizeMB     float64
	ModelUnavailable bool

	// Dataset card, from the Hugging Face datasets API. Only filled
	// when the dataset URL points at Hugging Face.
	DatasetDownloads   int64
	DatasetLikes       int64
	DatasetExamples    int64
	DatasetUnavailable bool

	// Readme is the concatenated README text from the model card and
	// the linked code repository.
	Readme string

	// Code repository, from the GitHub API.
	Repo            RepoInventory
	CommitAuthors   int
	CodeUnavailable bool
}
