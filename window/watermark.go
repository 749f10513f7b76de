/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package window

import "time"

// Watermark tracks event-time progress: no event older than the watermark is
// expected any more. It advances only when an event with a newer time arrives.
type Watermark struct {
	// current is the current watermark time
	current time.Time
	// maxEventTime is the maximum event time seen so far
	maxEventTime time.Time
	// maxOutOfOrderness is the maximum allowed out-of-orderness
	maxOutOfOrderness time.Duration
}

// NewWatermark creates a watermark that trails the newest event time by maxOutOfOrderness.
func NewWatermark(maxOutOfOrderness time.Duration) *Watermark {
	return &Watermark{maxOutOfOrderness: maxOutOfOrderness}
}

// UpdateEventTime records an event time and reports whether the watermark moved.
func (wm *Watermark) UpdateEventTime(eventTime time.Time) bool {
	if !wm.maxEventTime.IsZero() && !eventTime.After(wm.maxEventTime) {
		return false
	}
	wm.maxEventTime = eventTime
	next := eventTime.Add(-wm.maxOutOfOrderness)
	if next.After(wm.current) {
		wm.current = next
		return true
	}
	return false
}

// Current returns the current watermark, the zero time before any event.
func (wm *Watermark) Current() time.Time {
	return wm.current
}

// MaxEventTime returns the newest event time seen.
func (wm *Watermark) MaxEventTime() time.Time {
	return wm.maxEventTime
}

// Passed reports whether the watermark has reached t.
func (wm *Watermark) Passed(t time.Time) bool {
	return !wm.current.IsZero() && !wm.current.Before(t)
}

// alignWindowStart aligns a timestamp down to a multiple of size since the
// epoch, so window boundaries do not depend on when the first event arrived.
//
// Example: an event at 10001ms with a 2000ms size lands in [10000ms, 12000ms).
func alignWindowStart(timestamp time.Time, size time.Duration) time.Time {
	unixNano := timestamp.UnixNano()
	sizeNano := size.Nanoseconds()
	aligned := (unixNano / sizeNano) * sizeNano
	if unixNano < 0 && unixNano%sizeNano != 0 {
		aligned -= sizeNano
	}
	return time.Unix(0, aligned).UTC()
}
