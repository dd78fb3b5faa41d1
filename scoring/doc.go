// Package scoring ranks repositories by a weighted blend of popularity and
// recency.
//
// Stars and forks are log-compressed and divided by the 95th percentile of
// the batch, so one outlier cannot flatten everyone else. Recency decays
// with a 90-day half-life. Scores and every breakdown component lie in
// [0, 1].
package scoring
