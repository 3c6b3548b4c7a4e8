package ai

import (
	"context"
	"strings"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

type cannedRule struct {
	keywords []string
	reply    string
}

// CannedResponder answers from a fixed FAQ when no model is configured.
type CannedResponder struct {
	rules    []cannedRule
	fallback string
}

// NewCannedResponder returns the built-in logistics FAQ.
func NewCannedResponder() *CannedResponder {
	return &CannedResponder{
		rules: []cannedRule{
			{
				keywords: []string{"track", "where is", "status"},
				reply:    "For shipment status, please share your airway bill or bill of lading number and our operations desk will confirm the latest milestone.",
			},
			{
				keywords: []string{"quote", "price", "cost", "rate", "rates"},
				reply:    "We'd be glad to prepare a custom quote. Please tell us the origin, destination, cargo type and approximate weight, and leave your contact details in the form.",
			},
			{
				keywords: []string{"customs", "clearance", "hs code"},
				reply:    "Our licensed customs brokers handle import and export clearance, HS classification and documentation at all major Nepal border points.",
			},
			{
				keywords: []string{"freight", "shipping", "air", "sea", "ocean"},
				reply:    "We arrange air, sea and multimodal freight worldwide, including consolidation through Kolkata and Chittagong ports.",
			},
			{
				keywords: []string{"warehouse", "storage"},
				reply:    "Bonded and general warehousing is available in Kathmandu with inventory reporting on request.",
			},
			{
				keywords: []string{"contact", "phone", "email", "call"},
				reply:    "You can reach us at +977 1 234 5678 or info@teamglobal.com.np, 24/7.",
			},
			{
				keywords: []string{"hello", "hi", "hey", "namaste"},
				reply:    "Hello! Welcome to " + CompanyName + ". Ask me about shipping services, tracking, or a custom quote.",
			},
		},
		fallback: "Thanks for your message. A member of the " + CompanyName + " team can help with that; would you like us to contact you?",
	}
}

// Reply returns the first FAQ answer whose keyword occurs in userMessage.
func (r *CannedResponder) Reply(_ context.Context, _ string, _ []chat.Message, userMessage string) (string, error) {
	lowered := strings.ToLower(userMessage)
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if containsWord(lowered, kw) {
				return rule.reply, nil
			}
		}
	}
	return r.fallback, nil
}

// containsWord matches kw on word boundaries so "hi" does not hit "shipping".
func containsWord(text, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(kw)
		if (idx == 0 || !isWordByte(text[idx-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}
