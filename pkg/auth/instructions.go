package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for collecting
// the session cookies and the Pexels API key
func ShowCookieExtractionGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 ECOSAPIENS COOKIE & API KEY GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Each account is identified by its browser session cookie.")
	fmt.Fprintln(w, "Images are fetched from Pexels, which needs a free API key.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Log in")
	fmt.Fprintln(w, "   - Go to https://prod.ecosapiens.xyz and log in")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔧 STEP 2: Open Developer Tools")
	fmt.Fprintln(w, "   • Chrome/Edge/Brave/Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📡 STEP 3: Copy the Cookie header")
	fmt.Fprintln(w, "   1. Open the 'Network' tab and refresh the page")
	fmt.Fprintln(w, "   2. Click any request to api.prod.ecosapiens.xyz")
	fmt.Fprintln(w, "   3. Under 'Request Headers' copy the whole value of 'Cookie:'")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🍪 STEP 4: Save it")
	fmt.Fprintln(w, "   - Put one cookie per line in cookie.key, one line per account")
	fmt.Fprintln(w, "   - Or run: ecoscan auth import-cookies cookie.key")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔑 STEP 5: Pexels API key")
	fmt.Fprintln(w, "   - Create a key at https://www.pexels.com/api/")
	fmt.Fprintln(w, "   - Save it in api.key, or run: ecoscan auth set-key")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • A session cookie gives FULL access to the account")
	fmt.Fprintln(w, "   • NEVER share it with anyone")
	fmt.Fprintln(w, "   • Cookies expire; accounts showing 'Invalid Cookie' need a fresh one")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "🍪 Quick Guide: F12 → Network → Refresh → any api.prod.ecosapiens.xyz request → Headers → Cookie")
	fmt.Fprintln(w, "   One cookie per line in cookie.key; Pexels key in api.key")
	fmt.Fprintln(w, "   Run 'ecoscan auth guide' for detailed instructions")
}
