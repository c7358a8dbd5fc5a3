// Package activitymap turns authsync activity events into a flat record for
// downstream systems and ships them to a redis stream.
package activitymap
