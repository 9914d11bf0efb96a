// Command brandsite renders employer branding pages from layout tables,
// content documents and HTML component fragments.
package main

func main() {
	Execute()
}
