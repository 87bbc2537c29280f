// Package eventlog implements the append-only Log sink spec.md §6
// requires: one structured entry per membership or CRUD event, named
// exactly as the external harness contract specifies (NodeAdd,
// NodeRemove, CreateSuccess/Fail, ...). It wraps a zap.SugaredLogger
// rather than inventing a bespoke serialization, following
// mcastellin-golang-mastery/distributed-queue's pattern of threading a
// *zap.Logger through constructors instead of using a package-level
// global.
package eventlog
