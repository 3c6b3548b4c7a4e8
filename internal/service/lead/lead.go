// Package lead turns quote requests raised in the chat into contact leads.
package lead

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/lead"
)

// DefaultSubject is used for leads raised from the chat widget.
const DefaultSubject = "AI Chat Lead - Request for Quote"

var ErrInvalidLead = errors.New("invalid lead")

// NewDraft prefills a lead from the last chat message.
func NewDraft(lastMessage string) model.Lead {
	return model.Lead{
		Subject: DefaultSubject,
		Message: lastMessage,
	}
}

// Normalize trims every field.
func Normalize(l model.Lead) model.Lead {
	return model.Lead{
		Name:    strings.TrimSpace(l.Name),
		Email:   strings.TrimSpace(l.Email),
		Phone:   strings.TrimSpace(l.Phone),
		Subject: strings.TrimSpace(l.Subject),
		Message: strings.TrimSpace(l.Message),
	}
}

// Validate requires name, email and phone and checks the email address.
func Validate(l model.Lead) error {
	l = Normalize(l)

	var missing []string
	if l.Name == "" {
		missing = append(missing, "name")
	}
	if l.Email == "" {
		missing = append(missing, "email")
	}
	if l.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidLead, strings.Join(missing, ", "))
	}

	if _, err := mail.ParseAddress(l.Email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidLead, l.Email)
	}
	return nil
}
