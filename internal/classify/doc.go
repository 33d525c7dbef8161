// Package classify turns raw probe outcomes into cache verdicts.
//
// Classification is pure: it reads only the outcome and the classifier's
// configuration. The one fatal condition, an unauthenticated wall page,
// is reported as ErrAuthWall so the scheduler can stop the run.
package classify
