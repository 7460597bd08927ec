package models

// Notification is a pending fan-out record for one user and one new release group.
type Notification struct {
	ID             int64
	UserID         string
	ReleaseGroupID string
}

// PendingNotification is a [Notification] joined with the release and artist it announces.
type PendingNotification struct {
	Notification
	Release ReleaseListing
}
