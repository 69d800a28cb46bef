// Package common contains shared constants and sentinel errors used across
// StackPad components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// outbound API requests.
const AccessTokenHeaderName = "Authorization"

// CurrentPayloadVersion is the schema version stamped on every event payload
// written by this build.
const CurrentPayloadVersion = 2

// MinPayloadVersion is the floor below which locally stored events are
// considered written by a dead/legacy format and are never pushed.
const MinPayloadVersion = 2
