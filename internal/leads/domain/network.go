package domain

import "strings"

// NetworkDistance is the degree of connection between the account and a lead.
type NetworkDistance string

const (
	NetworkOutOfNetwork NetworkDistance = "OUT_OF_NETWORK"
	NetworkDistance1    NetworkDistance = "DISTANCE_1"
	NetworkDistance2    NetworkDistance = "DISTANCE_2"
	NetworkDistance3    NetworkDistance = "DISTANCE_3"
)

// ParseNetworkDistance maps the spellings used across provider endpoints
// (FIRST_DEGREE, 1st, DISTANCE_1, ...) onto NetworkDistance. Unknown values
// return false so the stored distance is left alone.
func ParseNetworkDistance(raw string) (NetworkDistance, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DISTANCE_1", "FIRST_DEGREE", "1", "1ST", "F":
		return NetworkDistance1, true
	case "DISTANCE_2", "SECOND_DEGREE", "2", "2ND", "S":
		return NetworkDistance2, true
	case "DISTANCE_3", "THIRD_DEGREE", "3", "3RD", "3RD+", "O":
		return NetworkDistance3, true
	case "OUT_OF_NETWORK", "OUT_OF_NETWORK_DEGREE":
		return NetworkOutOfNetwork, true
	default:
		return "", false
	}
}
