package command

import (
	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// NewAddAttachment returns a command attaching location to each owner.
func NewAddAttachment(owners []domain.ID, kind domain.AttachmentKind, location string) Command {
	c := newOwned(`Add attachment to "%s"`, "Add attachment", owners)
	c.build = func(tx *core.Transaction, id domain.ID) domain.Entity {
		return domain.NewAttachment(id, kind, location, tx.Now())
	}
	return c
}

// NewRemoveAttachment returns a command removing attachments from owner.
func NewRemoveAttachment(owner domain.ID, attachments []domain.ID) Command {
	return newDisowned(`Remove attachment "%s"`, "Remove attachments", owner, attachments)
}

// NewEditAttachmentLocation returns a command pointing attachments elsewhere.
func NewEditAttachmentLocation(items []domain.ID, location string) Command {
	return newEdit(`Edit location of attachment "%s"`, "Edit location of attachments", items, location,
		attr(core.View.Attachment, (*domain.Attachment).Location, (*domain.Attachment).SetLocation))
}
