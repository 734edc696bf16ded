// Command issuefs edits remote issue-tracker tickets as folders of
// plain-text files and synchronizes edits in both directions.
package main

func main() {
	Execute()
}
