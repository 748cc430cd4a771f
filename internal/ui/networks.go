package ui

import (
	"strconv"
	"strings"
)

const unknownNetwork = "Unknown Network"

var networkNames = map[string]string{
	"1":          "Ethereum Mainnet",
	"10":         "Optimism",
	"14":         "Flare Mainnet",
	"25":         "Cronos Mainnet",
	"56":         "Binance Smart Chain",
	"100":        "Gnosis Chain",
	"137":        "Polygon (Matic)",
	"250":        "Fantom Opera",
	"288":        "Boba Network",
	"324":        "zkSync Era",
	"1088":       "Metis Andromeda",
	"1101":       "Polygon zkEVM",
	"1284":       "Moonbeam",
	"1285":       "Moonriver",
	"2020":       "Ronin",
	"5000":       "Mantle",
	"8453":       "Base",
	"42161":      "Arbitrum One",
	"42220":      "Celo Mainnet",
	"43114":      "Avalanche C-Chain",
	"59144":      "Linea",
	"81457":      "Blast",
	"534352":     "Scroll",
	"7777777":    "Zora",
	"1313161554": "Aurora",
	"solana":     "Solana",
	"ethereum":   "Ethereum Mainnet",
	"polygon":    "Polygon (Matic)",
	"arbitrum":   "Arbitrum One",
	"base":       "Base",
	"optimism":   "Optimism",
	"starknet":   "Starknet",
}

// NetworkName decodes a chain id or network slug into a display name.
func NetworkName(network string) string {
	key := strings.ToLower(strings.TrimSpace(network))
	if key == "" {
		return unknownNetwork
	}
	if name, ok := networkNames[key]; ok {
		return name
	}
	if _, err := strconv.ParseUint(key, 10, 64); err == nil {
		return unknownNetwork
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
