// Package xpt describes native interface metadata: type tags, the coercion
// table between native and managed representations, and interface,
// method and parameter descriptors.
//
// Descriptors come from an Oracle. Typelib is an in-memory Oracle that can
// be populated programmatically, from TOML typelib files, or from WIT
// function signatures:
//
//	lib := xpt.NewTypelib()
//	if err := lib.LoadTOMLFile("calc.toml"); err != nil {
//	    return err
//	}
//	info, ok := lib.InterfaceByName("nsICalc")
//
// Method indices count the whole inheritance chain, parent methods first,
// so index 0-2 are always the nsISupports methods.
package xpt
