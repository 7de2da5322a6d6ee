package common

// AdminKeyHeaderName is the HTTP header carrying the service key on
// requests to the dispatch admin API.
const AdminKeyHeaderName = "X-Admin-Password"

// PhotoSlotCount is the number of photos a technician must capture in each
// of the before/after phases of a mission.
const PhotoSlotCount = 5
