package web

import (
	"strings"

	"github.com/drfirst/go-mme/internal/domain/mme"
)

func joinRoutes(routes []mme.Route) string {
	parts := make([]string, len(routes))
	for i, r := range routes {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
