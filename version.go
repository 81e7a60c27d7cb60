// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package corehttp

// Version is the semantic version of the corehttp module, as reported
// in the default User-Agent header.
const Version = "0.1.0"
