package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile        string
	WordsFile      string
	DeckName       string
	NoteModel      string
	AudioDir       string
	CheckpointFile string
	TTSDelay       float64

	SkipExistingAudio bool
	TestMode          bool
	ReverseCards      bool
	RetryFailed       bool
	ListModels        bool
	Archive           bool
	SaveConfig        bool
	Verbose           bool

	// Audio provider flags
	AudioProvider string
	AudioFormat   string
	Voice         string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		WordsFile:      "./words.txt",
		DeckName:       "Danish vocab",
		NoteModel:      "Danish",
		AudioDir:       "./audio",
		CheckpointFile: "./checkpoint.json",
		TTSDelay:       6.5,
		AudioProvider:  "gemini",
		AudioFormat:    "wav",
	}
}
