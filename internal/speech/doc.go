// Package speech reads translated text aloud, either through the ElevenLabs
// text-to-speech API and a local audio sink, or through a speech synthesizer
// installed on the system.
//
// Both variants implement Speaker. A Speaker holds at most one active
// session: starting a new one stops the previous one first, and Stop may be
// called any number of times.
package speech
