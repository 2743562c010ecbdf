package internaldefs

import (
	goVerify "github.com/MrEthical07/goVerify"
)

// CounterDef maps a counter id to its exported name.
type CounterDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram id to its exported name.
type HistogramDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goVerify.MetricVerifySuccess, Name: "goverify_verify_success_total", Help: "Guarded verifications that succeeded."},
	{ID: goVerify.MetricVerifyFailure, Name: "goverify_verify_failure_total", Help: "Guarded verifications that failed and were counted."},
	{ID: goVerify.MetricAccountLocked, Name: "goverify_account_locked_total", Help: "Failures that locked an account."},
	{ID: goVerify.MetricLockoutRejected, Name: "goverify_lockout_rejected_total", Help: "Attempts rejected because the account was locked."},
	{ID: goVerify.MetricLockoutProbation, Name: "goverify_lockout_probation_total", Help: "Attempts admitted on probation after a lock elapsed."},
	{ID: goVerify.MetricAccountUnlocked, Name: "goverify_account_unlocked_total", Help: "Administrative unlocks."},
	{ID: goVerify.MetricLoginSuccess, Name: "goverify_login_success_total", Help: "Successful password logins."},
	{ID: goVerify.MetricLoginFailure, Name: "goverify_login_failure_total", Help: "Failed password logins."},
	{ID: goVerify.MetricAccountCreated, Name: "goverify_account_created_total", Help: "Accounts created by invite or registration."},
	{ID: goVerify.MetricAccountDuplicate, Name: "goverify_account_duplicate_total", Help: "Account creations rejected as duplicate."},
	{ID: goVerify.MetricAccountConfirmed, Name: "goverify_account_confirmed_total", Help: "Confirmed invites, registrations and resets."},
	{ID: goVerify.MetricPasswordResetRequest, Name: "goverify_password_reset_request_total", Help: "Password reset requests."},
	{ID: goVerify.MetricPasswordChanged, Name: "goverify_password_changed_total", Help: "Successful password changes."},
	{ID: goVerify.MetricCodeSent, Name: "goverify_code_sent_total", Help: "One-time codes queued for delivery."},
	{ID: goVerify.MetricCodeDeliveryRateLimited, Name: "goverify_code_delivery_rate_limited_total", Help: "Code sends refused by the delivery throttle."},
	{ID: goVerify.MetricCodeVerified, Name: "goverify_code_verified_total", Help: "Accepted HOTP codes."},
	{ID: goVerify.MetricCodeRejected, Name: "goverify_code_rejected_total", Help: "Rejected HOTP codes."},
	{ID: goVerify.MetricTOTPSuccess, Name: "goverify_totp_success_total", Help: "Accepted TOTP codes."},
	{ID: goVerify.MetricTOTPFailure, Name: "goverify_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: goVerify.MetricTokenRejected, Name: "goverify_token_rejected_total", Help: "Rejected action tokens."},
	{ID: goVerify.MetricAccessCodeIssued, Name: "goverify_access_code_issued_total", Help: "Issued access codes."},
	{ID: goVerify.MetricAccessCodeRedeemed, Name: "goverify_access_code_redeemed_total", Help: "Redeemed access codes."},
	{ID: goVerify.MetricAccessCodeRejected, Name: "goverify_access_code_rejected_total", Help: "Rejected access codes."},
	{ID: goVerify.MetricAddressCodeVerified, Name: "goverify_address_code_verified_total", Help: "Accepted address codes."},
	{ID: goVerify.MetricAddressCodeRejected, Name: "goverify_address_code_rejected_total", Help: "Rejected address codes."},
	{ID: goVerify.MetricRequestAccepted, Name: "goverify_request_accepted_total", Help: "Accepted signed requests."},
	{ID: goVerify.MetricRequestRejected, Name: "goverify_request_rejected_total", Help: "Rejected signed requests."},
	{ID: goVerify.MetricReplayDetected, Name: "goverify_replay_detected_total", Help: "Signed requests rejected as replays."},
	{ID: goVerify.MetricStoreUnavailable, Name: "goverify_store_unavailable_total", Help: "Operations failed by an unavailable record store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goVerify.MetricVerifyLatency, Name: "goverify_verify_latency_seconds", Help: "Guarded verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, truncating or zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into Prometheus cumulative
// counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
