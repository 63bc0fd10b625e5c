// Package fuzzsplit drives ffuf over a wordlist that is too large to finish inside a time budget.
// It works out how many partitions the wordlist needs at the requested rate, then runs ffuf once per partition,
// feeding each slice produced by split(1) through ffuf's stdin and optionally attaching a freshly fetched bearer token.
package fuzzsplit
