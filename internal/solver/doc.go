/*
Copyright SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package solver keeps the desired state of every package of a sealed
package cache and reconciles it: install, remove, upgrade, check integrity
and others.

Every package gets one StateCache entry, holding:
 - The candidate version, chosen by the policy at Init and changeable with
   SetCandidateVer.
 - The mode (keep, install, delete) and the version the package would be at
   once the changes are committed.
 - The Auto and ReInstall flags, and the derived NowBroken, InstBroken and
   Garbage flags.

To perform a package operation, for example "install packageA", we:

 1. Build the package cache (internal/pkg) out of the installed status and
 the known repositories, and a policy (internal/policy) with its pins.

 2. Create a DepCache and Init it: every package is kept at its installed
 version, candidates come from the policy, every counter is computed from
 scratch.

 3. Mark: MarkInstall walks the dependencies of the candidate and marks
 what is missing as automatically installed, upgrading or removing what
 conflicts. MarkDelete and MarkKeep only touch the package itself. Every
 mark updates the counters (KeepCount, InstCount, DelCount, BrokenCount,
 UsrSize, DebSize) and the InstBroken flag of the packages whose relations
 it may affect.

 4. If packages are left broken, a ProblemResolver changes or removes
 packages until the state is consistent, honouring protected packages.

 5. Read the result with Changes or Result, and hand it over to a commit.

Garbage flags are recomputed by a mark and sweep from the manually
installed packages whenever the outermost ActionGroup is released; every
public mutator holds one, so a batch of marks inside a caller held group
sweeps once.

A DepCache is not safe for concurrent use.
*/
package solver
