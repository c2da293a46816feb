// Package browser provides the page automation capability used by the
// form-submission worker.
//
// The worker only sees the Launcher, Page and Element interfaces. Two engines
// implement them:
//   - RodLauncher drives headless Chromium through the DevTools protocol
//     (github.com/go-rod/rod). Each Open creates an incognito browser context,
//     so sessions share no cookies or storage.
//   - StaticLauncher fetches pages over plain HTTP and queries them with
//     goquery. It runs no JavaScript; clicking a submit control serializes the
//     enclosing form and sends it to the form's action URL.
//
// Element lookup is expressed as heuristic.Rule values, never as raw selectors,
// so fakes can evaluate the same rules without a DOM engine.
package browser
