// Package main provides the PolicyGuard command line.
//
// PolicyGuard scans a website for advertising-policy risks and reports a
// compliance score.
//
// Usage:
//
//	policyguard serve --config config/config.yaml
//	policyguard scan https://example.com --pretty
package main

func main() {
	Execute()
}
