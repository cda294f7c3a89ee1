// ec2 wraps the subset of the AWS EC2 API used by webctl: launching tagged
// instances, listing them by tag and terminating them.
//
// Filtering is always delegated to EC2's server-side tag filters; nothing here
// caches or reconciles instance state. Every call is a single synchronous
// request (or a paginated sequence of them).
//
// NOTE: ALL errors returned by this package wrap one of the 'internal/errs'
// categories.
package ec2
