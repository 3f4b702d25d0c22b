// Package share hands compressed videos to other people or apps.
//
// The Sharer checks that each output still exists and delegates to a
// Backend:
//
//   - local: issues a signed, expiring read grant (an HS256 JWT) naming the
//     files; the grant is redeemed with Open.
//   - s3: uploads through the transfer manager and returns presigned GET URLs.
//   - gcs: uploads through an object writer and returns V4 signed URLs.
//   - sftp: uploads to a remote directory and returns sftp:// links.
package share
