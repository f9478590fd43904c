package services

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"netmon-dashboard/backend/system"
)

const (
	unknownCountryCode = "XX"
	unknownCountryName = "Unknown"
)

type countryRange struct {
	network *net.IPNet
	code    string
	name    string
}

// GeoIPService resolves alert source addresses to countries. It uses a
// MaxMind country database when one is configured, and a small built-in
// table of reserved and well-known ranges otherwise.
type GeoIPService struct {
	mu       sync.RWMutex
	reader   *geoip2.Reader
	fallback []countryRange
}

// NewGeoIPService opens dbPath if set. A database that fails to open is
// logged and the built-in table is used instead.
func NewGeoIPService(dbPath string) *GeoIPService {
	g := &GeoIPService{}
	g.loadFallbackData()

	if dbPath == "" {
		system.Info("GeoIP database not configured, using built-in ranges")
		return g
	}
	if err := g.Open(dbPath); err != nil {
		system.Warn("GeoIP: %v", err)
	}
	return g
}

// Open replaces the active country database.
func (g *GeoIPService) Open(dbPath string) error {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open country database %s: %w", dbPath, err)
	}

	g.mu.Lock()
	old := g.reader
	g.reader = reader
	g.mu.Unlock()

	if old != nil {
		old.Close()
	}
	system.Info("GeoIP database loaded from %s", dbPath)
	return nil
}

// HasDatabase reports whether a MaxMind database is loaded.
func (g *GeoIPService) HasDatabase() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reader != nil
}

// GetCountry returns the country name and ISO code for ipStr, or
// ("Unknown", "XX") when it cannot be resolved.
func (g *GeoIPService) GetCountry(ipStr string) (string, string) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return unknownCountryName, unknownCountryCode
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.reader != nil {
		rec, err := g.reader.Country(ip)
		if err == nil && rec.Country.IsoCode != "" {
			name := rec.Country.Names["en"]
			if name == "" {
				name = rec.Country.IsoCode
			}
			return name, rec.Country.IsoCode
		}
	}

	for _, r := range g.fallback {
		if r.network.Contains(ip) {
			return r.name, r.code
		}
	}
	return unknownCountryName, unknownCountryCode
}

// GetCountryCode returns only the ISO code for ipStr.
func (g *GeoIPService) GetCountryCode(ipStr string) string {
	_, code := g.GetCountry(ipStr)
	return code
}

func (g *GeoIPService) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reader != nil {
		g.reader.Close()
		g.reader = nil
	}
}

// loadFallbackData loads the built-in ranges. Reserved blocks map to the
// user-assigned code ZZ.
func (g *GeoIPService) loadFallbackData() {
	table := []struct {
		cidr, code, name string
	}{
		{"10.0.0.0/8", "ZZ", "Private Network"},
		{"172.16.0.0/12", "ZZ", "Private Network"},
		{"192.168.0.0/16", "ZZ", "Private Network"},
		{"192.0.2.0/24", "ZZ", "Documentation"},
		{"198.51.100.0/24", "ZZ", "Documentation"},
		{"203.0.113.0/24", "ZZ", "Documentation"},
		{"8.8.8.0/24", "US", "United States"},
		{"8.8.4.0/24", "US", "United States"},
		{"1.1.1.0/24", "AU", "Australia"},
		{"1.0.0.0/24", "AU", "Australia"},
	}

	ranges := make([]countryRange, 0, len(table))
	for _, entry := range table {
		_, network, err := net.ParseCIDR(entry.cidr)
		if err != nil {
			continue
		}
		ranges = append(ranges, countryRange{network: network, code: entry.code, name: entry.name})
	}

	g.mu.Lock()
	g.fallback = ranges
	g.mu.Unlock()
}
