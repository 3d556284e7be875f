package upload

type State int

const (
	StateIdle State = iota
	StateCalculating
	StateCalculated
	StatePreparing
	StateUploading
	StateSuccess
	StateError
)

var stateNames = [...]string{"idle", "calculating", "calculated", "preparing", "uploading", "success", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Busy reports whether an attempt is in flight in this state.
func (s State) Busy() bool {
	return s == StateCalculating || s == StatePreparing || s == StateUploading
}

// ErrorKind qualifies StateError.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindHashFailure
	KindAlreadyExists
	KindNetworkFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindHashFailure:
		return "hash failure"
	case KindAlreadyExists:
		return "already exists"
	case KindNetworkFailure:
		return "network failure"
	default:
		return ""
	}
}

// FileInfo describes the uploaded file to the success hook.
type FileInfo struct {
	Name string
	Size int64
}

// Snapshot is a copy of the machine state handed to observers.
type Snapshot struct {
	State   State
	Kind    ErrorKind
	Message string

	FileName  string
	FileSize  int64
	Extension string
	Digest    string
	Key       string

	HashProgress   float64
	UploadProgress float64
}

// Hooks are invoked outside the machine lock, on the goroutine that runs the
// operation.
type Hooks struct {
	OnChange        func(Snapshot)
	OnUploadSuccess func(key string, info FileInfo)
	OnUploadError   func(message string)
}
