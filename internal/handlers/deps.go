package handlers

import (
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/notify"
	"obra-manager/internal/share"
	"obra-manager/internal/storage"
)

// Collaborators shared by the handlers. Setup replaces the defaults at start-up;
// tests override them directly.
var (
	Roles    = access.DefaultRoles()
	Notifier = notify.New(notify.LogOnly{})
	Photos   *storage.Local
	Sharer   = share.NewSigner("dev-share-secret", 72*time.Hour)
	Now      = time.Now
)

func Setup(roles access.Roles, n *notify.Notifier, photos *storage.Local, sharer *share.Signer) {
	Roles = roles
	Notifier = n
	Photos = photos
	Sharer = sharer
}
