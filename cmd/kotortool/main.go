// kotortool reads, converts and repacks KotOR game resources.
//
// Usage:
//
//	kotortool gff dump <file>
//	kotortool 2da dump <file>
//	kotortool tlk dump|get <dialog.tlk> [strref]
//	kotortool erf list|extract|pack ...
//	kotortool rim list|extract|pack ...
//	kotortool key list|extract <chitin.key> ...
//	kotortool ncs disasm|asm <files...>
//	kotortool serve [modules...]
package main

import "github.com/yoremi/kotor-go/cmd/kotortool/cmd"

func main() {
	cmd.Execute()
}
