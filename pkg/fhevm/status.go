package fhevm

// Status is a coarse bootstrap progress token.
type Status string

const (
	StatusSDKLoading      Status = "sdk-loading"
	StatusSDKLoaded       Status = "sdk-loaded"
	StatusSDKInitializing Status = "sdk-initializing"
	StatusSDKInitialized  Status = "sdk-initialized"
	StatusCreating        Status = "creating"
)

// Statuses returns every status in the order a fresh bootstrap emits them.
func Statuses() []Status {
	return []Status{StatusSDKLoading, StatusSDKLoaded, StatusSDKInitializing, StatusSDKInitialized, StatusCreating}
}

func (s Status) String() string { return string(s) }
