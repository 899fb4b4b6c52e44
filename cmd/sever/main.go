// Command sever is the CLI driver wiring the distribution registry
// (package dist), the MH/HMC samplers and VI solver (package infer) and
// the multi-chain diagnostics (infer.GelmanRubin / infer.MultiChainESS)
// into three subcommands: sample, vi and diagnose. It is thin plumbing
// over the inference core; all the logic worth testing lives one layer
// down.
package main

func main() {
	Execute()
}
