// Command bootsim runs BOOT's measure-verify-select-handoff sequence
// against a pair of kernel image files on disk, the same sequence
// boot_test.go exercises against synthetic in-memory images, but wired to
// real files so it can double as a manual verification tool for images
// produced by cmd/hashgen.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"blockdev"
	"boot"
	"mem"
	"pmp"
)

// fileInspector reads ELF header bytes directly out of the image files on
// disk, indexed by the base address boot.Normal/boot.Recovery carry.
type fileInspector struct {
	data map[mem.Pa_t][]byte
}

func (f *fileInspector) ReadAt(base mem.Pa_t, off, n int) ([]byte, error) {
	img, ok := f.data[base]
	if !ok {
		return nil, fmt.Errorf("bootsim: no image registered at base %#x", base)
	}
	if off+n > len(img) {
		return nil, fmt.Errorf("bootsim: read past end of image at base %#x", base)
	}
	return img[off : off+n], nil
}

func main() {
	normalPath := flag.String("normal", "", "path to the normal kernel image")
	recoveryPath := flag.String("recovery", "", "path to the recovery kernel image")
	trustedHex := flag.String("trusted-hash", "", "hex-encoded trusted SHA-256 hash (from cmd/hashgen)")
	profile := flag.String("pmp-profile", "default", "pmp profile: default, kernelpmp1, kernelpmp2")
	flag.Parse()

	if *normalPath == "" || *recoveryPath == "" || *trustedHex == "" {
		fmt.Fprintln(os.Stderr, "usage: bootsim -normal <path> -recovery <path> -trusted-hash <hex>")
		os.Exit(1)
	}

	normalBytes, err := os.ReadFile(*normalPath)
	if err != nil {
		log.Fatal(err)
	}
	recoveryBytes, err := os.ReadFile(*recoveryPath)
	if err != nil {
		log.Fatal(err)
	}

	hashBytes, err := hex.DecodeString(*trustedHex)
	if err != nil || len(hashBytes) != 32 {
		log.Fatalf("bootsim: -trusted-hash must be 64 hex characters, got %q", *trustedHex)
	}
	copy(boot.TrustedHash[:], hashBytes)

	src := blockdev.NewRAMSource(normalBytes, recoveryBytes)
	ins := &fileInspector{data: map[mem.Pa_t][]byte{
		boot.RAMDISK:      normalBytes,
		boot.RECOVERYDISK: recoveryBytes,
	}}

	var prof pmp.Profile
	switch *profile {
	case "kernelpmp1":
		prof = pmp.KernelPMP1
	case "kernelpmp2":
		prof = pmp.KernelPMP2
	default:
		prof = pmp.Default
	}

	seq := &boot.Sequence{Source: src, Inspect: ins, Profile: prof}
	out, err := seq.Run()
	if err != nil {
		log.Fatalf("bootsim: %v", err)
	}

	fmt.Printf("chosen image: %s\n", out.Chosen.Kind)
	fmt.Printf("entry point:  %#x\n", out.Entry)
	fmt.Printf("pmp regions:  %d\n", len(out.Regions))
	fmt.Printf("observed hash: %x\n", out.Info.ObservedHash)
}
