package symbols

import "strconv"

func hexAddr(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}

// FormatAddress renders an address the way the exporters display it
func FormatAddress(addr uint64) string {
	return hexAddr(addr)
}
