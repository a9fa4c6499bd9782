// Package cookie provides tamper-evident HTTP cookies signed with HMAC-SHA256.
//
// The engine stores two kinds of client-side state in cookies: the anonymous
// visitor token and the advisory usage counters that back the metering
// fallback path. Both must survive casual tampering, so every value carries a
// signature and unverifiable cookies are treated as absent.
//
// Usage:
//
//	manager, err := cookie.New([]string{secret}, cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//	_ = manager.SetSigned(w, "anonymous_id", token, cookie.WithMaxAge(180*24*3600))
//	used := manager.GetCounter(r, "anonymous_usage_used")
package cookie
