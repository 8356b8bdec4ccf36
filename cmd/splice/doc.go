// Command splice compiles edit intents into FCPXML and delivers them to Final
// Cut Pro through a CommandPost watch-folder, either immediately or through a
// background daemon.
package main
