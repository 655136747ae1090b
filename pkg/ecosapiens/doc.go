// Package ecosapiens is a client for the Ecosapiens scan API.
//
// Each Client is bound to one account's session cookie. It exposes the four
// calls the scan workflow needs: Identity and Points for account status,
// Submit to upload an image and Poll to follow the resulting scan.
package ecosapiens
