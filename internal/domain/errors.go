package domain

import "errors"

var (
	// ErrArticleNotFound is returned by stores when no article has the given id.
	ErrArticleNotFound = errors.New("article not found")

	// ErrDuplicateArticle signals a url or fingerprint uniqueness violation.
	ErrDuplicateArticle = errors.New("article already exists")
)

var (
	// ErrProviderUnavailable means no LLM credential is configured.
	ErrProviderUnavailable = errors.New("llm provider unavailable")

	// ErrTransportUnavailable means no mail transport is configured.
	ErrTransportUnavailable = errors.New("mail transport unavailable")
)
