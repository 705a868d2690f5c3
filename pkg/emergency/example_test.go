package emergency_test

import (
	"fmt"

	"github.com/jihwankim/chaos-scheduler/pkg/emergency"
)

// Example demonstrates emergency controller usage
func Example() {
	controller := emergency.New(emergency.Config{
		StopFile: "/tmp/chaos-emergency-stop-example",
	})

	controller.OnStop(func(reason string) {
		fmt.Println("Emergency stop triggered:", reason)
		fmt.Println("Stopping scheduler...")
	})

	controller.Stop("operator request")
	controller.Stop("ignored")

	<-controller.StopChannel()
	fmt.Println("Stopped:", controller.IsStopped())

	// Output:
	// Emergency stop triggered: operator request
	// Stopping scheduler...
	// Stopped: true
}
