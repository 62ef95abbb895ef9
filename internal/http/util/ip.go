package util

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/app/model"
)

// ClientIP returns the address of the client behind c. Forwarding headers are
// only honoured when trustProxy is set.
func ClientIP(c *fiber.Ctx, trustProxy bool) string {
	if trustProxy {
		if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// GeoLocation reads the coarse visitor location set by the edge network.
func GeoLocation(c *fiber.Ctx) model.Location {
	loc := model.Location{
		Continent: c.Get("X-Vercel-IP-Continent"),
		Country:   firstHeader(c, "X-Vercel-IP-Country", "CF-IPCountry"),
		Region:    c.Get("X-Vercel-IP-Country-Region"),
		City:      firstHeader(c, "X-Vercel-IP-City", "CF-IPCity"),
	}
	// City names arrive percent-encoded.
	if city, err := url.QueryUnescape(loc.City); err == nil {
		loc.City = city
	}
	return loc
}

func firstHeader(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := c.Get(name); v != "" {
			return v
		}
	}
	return ""
}
