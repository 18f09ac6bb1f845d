package crm

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoDetail means a card link cannot be built because the host, panel id
// or card key is missing.
var ErrNoDetail = errors.New("no detail available")

// CardURL builds the CRM web UI link {host}/panels/{panelID}/card/{cardKey}.
func CardURL(host, panelID, cardKey string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" || panelID == "" || cardKey == "" {
		return "", ErrNoDetail
	}
	return host + "/panels/" + url.PathEscape(panelID) + "/card/" + url.PathEscape(cardKey), nil
}
