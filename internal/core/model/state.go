package model

// FileEvent represents a file system event
type FileEvent struct {
	Path      string
	Operation string
}

// InteractionState represents the current UI interaction state
type InteractionState struct {
	ShowHelp       bool
	ShowDetail     bool
	Following      bool
	LayoutStyle    int
	SelectedRow    int // -1 when nothing is selected
	SearchActive   bool
	SearchQuery    string
	StatusMessage  string
	IsLoading      bool
	LoadingMessage string
	LoadingPercent float64 // negative when unknown
	ConfirmDialog  *ConfirmDialog
}

// ConfirmDialog represents a confirmation dialog
type ConfirmDialog struct {
	Title     string
	Message   string
	OnConfirm func()
	OnCancel  func()
}
