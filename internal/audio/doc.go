// Package audio plays synthesized speech through the system audio device
// using oto/v3. Player and MockPlayer both implement speech.Sink.
package audio
