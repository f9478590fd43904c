package services

import (
	"sort"

	"netmon-dashboard/backend/models"
)

const fallbackProtocolColor = "#6b7280"

var protocolColors = map[string]string{
	models.ProtocolTCP:   "#3b82f6",
	models.ProtocolUDP:   "#10b981",
	models.ProtocolHTTP:  "#f59e0b",
	models.ProtocolHTTPS: "#ef4444",
	models.ProtocolDNS:   "#8b5cf6",
	models.ProtocolICMP:  "#06b6d4",
}

// ProtocolColor returns the chart color for a protocol label.
func ProtocolColor(protocol string) string {
	if c, ok := protocolColors[protocol]; ok {
		return c
	}
	return fallbackProtocolColor
}

// ComputeProtocolStats returns the protocol distribution of packets, sorted by
// count descending. Ties keep the order in which protocols first appear.
func ComputeProtocolStats(packets []models.Packet) []models.ProtocolStats {
	stats := make([]models.ProtocolStats, 0, len(protocolColors))
	if len(packets) == 0 {
		return stats
	}

	index := make(map[string]int, len(protocolColors))
	for _, p := range packets {
		i, ok := index[p.Protocol]
		if !ok {
			i = len(stats)
			index[p.Protocol] = i
			stats = append(stats, models.ProtocolStats{
				Protocol: p.Protocol,
				Color:    ProtocolColor(p.Protocol),
			})
		}
		stats[i].Count++
	}

	total := float64(len(packets))
	for i := range stats {
		stats[i].Percentage = float64(stats[i].Count) / total * 100
	}

	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].Count > stats[b].Count
	})
	return stats
}
