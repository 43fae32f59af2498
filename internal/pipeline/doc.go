// Package pipeline drives each archived period through link discovery,
// classification, core page selection and scenario tagging.
//
// Every finished step is written to a checkpoint.Store before the next one
// starts. A later run over the same target loads the longest valid prefix of
// documents for each period and continues from there, so completed work is
// never redone and an interrupted run converges to the same documents as an
// uninterrupted one.
//
// The taxonomy that drives classification is generated once per target from a
// sample of the links of every period, and compiled into an immutable
// taxonomy.MatcherSet shared by all periods. Periods are otherwise
// independent: a failing period is recorded in the Summary and the others
// carry on.
package pipeline
