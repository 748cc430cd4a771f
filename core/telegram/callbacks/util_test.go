package callbacks

import "testing"

func TestSplitAndEncode(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"main_menu", "main_menu", ""},
		{"select_transfer_wallet:wallet-42", "select_transfer_wallet", "wallet-42"},
		{"confirm_transfer:ab:cd", "confirm_transfer", "ab:cd"},
	}
	for _, tc := range cases {
		key, payload := Split(tc.data)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("Split(%q) = %q, %q", tc.data, key, payload)
		}
		if got := Encode(key, payload); got != tc.data {
			t.Fatalf("Encode(%q, %q) = %q", key, payload, got)
		}
	}
}
