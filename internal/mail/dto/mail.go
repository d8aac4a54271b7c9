package dto

import (
	maildomain "mailroom-backend/internal/mail/domain"
)

type ThreadsResponse struct {
	Threads []*maildomain.EmailThread `json:"threads"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
	Total   int64                     `json:"total"`
}

type MessagesResponse struct {
	Messages []*maildomain.EmailMessage `json:"messages"`
}
