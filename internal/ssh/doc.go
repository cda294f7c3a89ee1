// ssh implements a facade over the 'x/crypto/ssh' package, covering what
// webctl needs to bootstrap a freshly launched instance:
//   - private key loading (the '<dir>/<name>.pem' files EC2 hands out)
//   - SSH client construction
//   - command execution with the remote exit status preserved
//   - streaming a local file to the remote host
//
// NOTE: ALL errors returned by this package will be wrapped with well-known (
// 'errors.Is(...') errors.
package ssh
