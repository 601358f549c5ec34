package internal

import "strings"

// Expectations lists the substrings a correctly configured deployment's
// avatar URL should, and should not, contain.
type Expectations struct {
	Bucket      string `json:"bucket"`
	WrongBucket string `json:"wrong_bucket"`
	Region      string `json:"region"`
	WrongRegion string `json:"wrong_region"`
}

// ClassifyURL is a deployment sanity heuristic over the returned URL. The
// known-wrong value is checked before the expected one.
func ClassifyURL(rawURL string, exp Expectations) *URLClassification {
	c := &URLClassification{URL: rawURL}
	c.Bucket, c.BucketMatch = classifySubstring(rawURL, exp.Bucket, exp.WrongBucket)
	c.Region, c.RegionMatch = classifySubstring(rawURL, exp.Region, exp.WrongRegion)
	return c
}

func classifySubstring(s, expected, wrong string) (Verdict, string) {
	if wrong != "" && strings.Contains(s, wrong) {
		return VerdictIncorrect, wrong
	}
	if expected != "" && strings.Contains(s, expected) {
		return VerdictCorrect, expected
	}
	return VerdictUnknown, ""
}
