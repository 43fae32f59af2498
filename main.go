// Command journey curates the customer-journey pages of an archived website.
package main

import "github.com/JakeFAU/wayback-journey/cmd"

func main() {
	cmd.Execute()
}
